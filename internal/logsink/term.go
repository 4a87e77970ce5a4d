package logsink

import "os"

// isTerminal is a minimal character-device check; none of the pack's
// dependencies already wired into this module (BurntSushi/toml, wazero,
// x/sys, x/sync, automaxprocs) offer TTY detection, so this stays on the
// standard library rather than pulling in a dependency for one stat call.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
