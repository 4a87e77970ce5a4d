// Package vfsactor is the read-only boot-archive-backed name resolver
// described by scenario S1, grounded on original_source's actors/vfs
// (which indexes a USTAR ramdisk by parsing tar headers out of a Memory
// capability). Here the archive is already parsed host-side by
// bootarchive.Archive, so this actor's job narrows to serving
// sys_cap_recv requests for file content rather than re-parsing tar
// headers itself. It runs as a directly hosted Go kernel-thread actor
// (a process.Entry), not a WASM guest, since it needs no sandboxing — it
// is trusted kernel-adjacent code exactly like the syscall gateway it
// calls into directly.
package vfsactor

import (
	"fmt"

	"nanokern/internal/bootarchive"
	"nanokern/internal/capability"
	"nanokern/internal/process"
	"nanokern/internal/syscall"
)

// LabelReadInto is the one request this actor understands: copy the
// archive entry at Data[0] (an index into Archive.Names(), the ordering
// fixed at archive-parse time), whole, into the Memory capability granted
// alongside the message, at offset Data[1] of that memory. The sender must own
// the destination memory and grant it with Write rights; vfsactor never
// allocates memory on a caller's behalf.
const LabelReadInto uint64 = 1

// NewEntry builds the VFS actor's Entry, bound to archive and the
// syscall gateway it uses to serve requests. coreByID resolves the
// actor's own resident core, needed for the blocking CapRecv contract,
// exactly as the guest loader resolves it for WASM actors.
func NewEntry(gw *syscall.Gateway, archive *bootarchive.Archive, coreByID func(int) syscall.Core) process.Entry {
	return func(p *process.Process) {
		core := coreByID(p.CoreID)
		names := archive.Names()
		gw.Log(p, fmt.Sprintf("vfs: serving %d archive entries", len(names)))
		for {
			msg := gw.CapRecv(p, core)
			if p.State() == process.Dead {
				return
			}
			if msg.Label != LabelReadInto {
				continue
			}
			idx := msg.Data[0]
			offset := msg.Data[1]
			if idx >= uint64(len(names)) {
				gw.Log(p, fmt.Sprintf("vfs: index %d out of range", idx))
				continue
			}
			data, ok := archive.Get(names[idx])
			if !ok {
				continue
			}
			dst := capability.Handle(msg.CapGrant)
			if err := gw.MemWrite(p, dst, offset, data); err != nil {
				gw.Log(p, fmt.Sprintf("vfs: write %s failed: %v", names[idx], err))
			}
		}
	}
}
