package capability

import (
	"sync"

	"nanokern/internal/kernelerr"
)

// SlotCount is the fixed size of every actor's capability table.
const SlotCount = 64

type slot struct {
	object     Object
	rights     Rights
	generation uint32
}

func (s slot) empty() bool { return s.object.Kind == KindEmpty }

// Table is a fixed-size array of capability slots, generation-guarded
// against ABA reuse. Every operation is total: invalid input returns
// absence, never a panic, per spec section 4.A's failure semantics.
type Table struct {
	mu    sync.Mutex
	slots [SlotCount]slot
}

// NewTable returns an empty capability table.
func NewTable() *Table {
	return &Table{}
}

// Resolved is a snapshot of a slot's contents returned by Lookup, decoupled
// from the Table's internal locking so callers can inspect it freely.
type Resolved struct {
	Object Object
	Rights Rights
}

// Insert scans for the first Empty slot, installs (object, perms) at the
// slot's current generation (no generation change on insert), and returns
// the handle. Returns kernelerr.ErrTableFull if no slot is free.
func (t *Table) Insert(object Object, rights Rights) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		if t.slots[i].empty() {
			t.slots[i].object = object
			t.slots[i].rights = rights
			return Pack(t.slots[i].generation, uint32(i)), nil
		}
	}
	return 0, kernelerr.ErrTableFull
}

// InsertAt installs (object, perms) at a specific index, used for boot-time
// capability seeding. Returns an error if index is out of range or the slot
// is already occupied.
func (t *Table) InsertAt(index uint32, object Object, rights Rights) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(index) >= SlotCount {
		return 0, kernelerr.ErrBadHandle
	}
	if !t.slots[index].empty() {
		return 0, kernelerr.ErrTableFull
	}
	t.slots[index].object = object
	t.slots[index].rights = rights
	return Pack(t.slots[index].generation, index), nil
}

// Lookup unpacks h, range-checks, generation-checks, and emptiness-checks.
// A handle is valid iff index is in range, the slot is non-empty, and the
// slot's current generation equals the generation encoded in h.
func (t *Table) Lookup(h Handle) (Resolved, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lookupLocked(h)
}

func (t *Table) lookupLocked(h Handle) (Resolved, bool) {
	idx := h.Index()
	if int(idx) >= SlotCount {
		return Resolved{}, false
	}
	s := t.slots[idx]
	if s.empty() || s.generation != h.Generation() {
		return Resolved{}, false
	}
	return Resolved{Object: s.object, Rights: s.rights}, true
}

// Remove clears the slot to Empty, zeroes its rights, and increments its
// generation (wrapping at 2^32). Every handle previously issued to this
// slot fails Lookup forever afterward. Returns the removed object.
func (t *Table) Remove(h Handle) (Object, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	res, ok := t.lookupLocked(h)
	if !ok {
		return Object{}, false
	}
	idx := h.Index()
	t.slots[idx].object = Object{}
	t.slots[idx].rights = 0
	t.slots[idx].generation++ // wraps at 2^32 by unsigned overflow, accepted per spec
	return res.Object, true
}

// HasPerms looks up h and reports whether its rights carry every bit in mask.
func (t *Table) HasPerms(h Handle, mask Rights) bool {
	res, ok := t.Lookup(h)
	if !ok {
		return false
	}
	return res.Rights.Has(mask)
}

// Snapshot returns a copy of every occupied slot's resolved view, keyed by
// the handle that currently addresses it. Used by the control plane and by
// cap-transfer-atomicity tests; never mutates the table.
func (t *Table) Snapshot() map[Handle]Resolved {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[Handle]Resolved)
	for i := range t.slots {
		s := t.slots[i]
		if !s.empty() {
			out[Pack(s.generation, uint32(i))] = Resolved{Object: s.object, Rights: s.rights}
		}
	}
	return out
}

// Generations returns the current generation counter of every slot, indexed
// by slot index — used by the handle-monotonicity property test.
func (t *Table) Generations() [SlotCount]uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out [SlotCount]uint32
	for i := range t.slots {
		out[i] = t.slots[i].generation
	}
	return out
}
