// Package memobj provides the backing store for Memory capabilities: a
// flat byte arena standing in for physical RAM, with bounds-checked
// read/write used by the Memory capability's sys_cap_mem_read/write
// syscalls (spec 4.I, scenario S2).
package memobj

import (
	"sync"

	"nanokern/internal/kernelerr"
)

// PageSize matches the spec's notion of a page for PageCount accounting.
const PageSize = 4096

// Arena is a fixed-size byte region, addressed by an offset from its own
// base (never a raw physical address, so a Memory capability's PhysBase
// and PageCount are purely bookkeeping that the guest ABI exposes, while
// this type only ever sees offsets already validated against them).
type Arena struct {
	mu   sync.RWMutex
	data []byte
}

// NewArena allocates an Arena of the given page count, zero-filled.
func NewArena(pageCount uint32) *Arena {
	return &Arena{data: make([]byte, int(pageCount)*PageSize)}
}

// Len reports the arena's size in bytes.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.data)
}

// ReadAt copies len(dst) bytes starting at offset into dst. Returns
// kernelerr.ErrBoundsExceeded if the requested range falls outside the
// arena, and never performs a partial copy on that path.
func (a *Arena) ReadAt(dst []byte, offset uint64) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	end := offset + uint64(len(dst))
	if offset > uint64(len(a.data)) || end > uint64(len(a.data)) || end < offset {
		return kernelerr.ErrBoundsExceeded
	}
	copy(dst, a.data[offset:end])
	return nil
}

// WriteAt copies src into the arena starting at offset. Returns
// kernelerr.ErrBoundsExceeded if the requested range falls outside the
// arena, leaving the arena untouched.
func (a *Arena) WriteAt(src []byte, offset uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	end := offset + uint64(len(src))
	if offset > uint64(len(a.data)) || end > uint64(len(a.data)) || end < offset {
		return kernelerr.ErrBoundsExceeded
	}
	copy(a.data[offset:end], src)
	return nil
}
