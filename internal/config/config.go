// Package config implements layered boot configuration, adapted from the
// teacher pack's internal/util Configuration/ConfigStore: a TOML file
// provides defaults, NANOKERN__-prefixed environment variables override
// it, and explicit CLI flags (cmd/nanokernd) override both.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is everything nanokernd needs to boot: core topology, scheduler
// timing, the boot archive to load, and logging.
type Config struct {
	Cores        int    `toml:"cores"`         // 0 means "detect via automaxprocs"
	TickHz       int    `toml:"tick_hz"`       // APIC-timer-equivalent frequency
	QuantumTicks int64  `toml:"quantum_ticks"` // ticks per scheduling quantum
	LogLevel     string `toml:"log_level"`     // debug|info|warn|error
	BootArchive  string `toml:"boot_archive"`  // path to a USTAR archive of guest .wasm modules
	ChaosMonkey  bool   `toml:"chaos_monkey"`  // gate internal/chaosguest on/off
}

// Default returns the configuration used when no file, environment, or
// flag overrides anything.
func Default() Config {
	return Config{
		Cores:        0,
		TickHz:       100,
		QuantumTicks: 5,
		LogLevel:     "info",
		BootArchive:  "",
		ChaosMonkey:  false,
	}
}

// Load builds a Config by layering, in increasing precedence: the
// built-in default, path (if non-empty, parsed as TOML), then
// NANOKERN__-prefixed environment variables. CLI flags are applied by the
// caller afterward by assigning the returned Config's fields, since
// cmd/nanokernd owns flag parsing.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

const envPrefix = "NANOKERN__"

func applyEnv(cfg *Config) {
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, envPrefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, envPrefix))
		switch key {
		case "cores":
			if n, err := strconv.Atoi(value); err == nil {
				cfg.Cores = n
			}
		case "tick_hz":
			if n, err := strconv.Atoi(value); err == nil {
				cfg.TickHz = n
			}
		case "quantum_ticks":
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				cfg.QuantumTicks = n
			}
		case "log_level":
			cfg.LogLevel = value
		case "boot_archive":
			cfg.BootArchive = value
		case "chaos_monkey":
			if b, err := strconv.ParseBool(value); err == nil {
				cfg.ChaosMonkey = b
			}
		}
	}
}
