// Package kernelerr defines the kernel's error taxonomy as named sentinel
// values. Every kernel-internal failure path returns one of these directly,
// unwrapped, so callers can compare with errors.Is regardless of which
// subsystem produced the error. The syscall
// gateway flattens all of these to the single ABI sentinel; nothing below
// the gateway ever panics on a value that reaches it from guest code.
package kernelerr

import "errors"

var (
	// ErrBadHandle means a composite handle failed range, generation, or
	// emptiness checks against the capability table it was looked up in.
	ErrBadHandle = errors.New("E_BAD_HANDLE")

	// ErrWrongKind means a capability resolved to a slot but the object
	// stored there is not the kind the caller required (e.g. not an Endpoint).
	ErrWrongKind = errors.New("E_WRONG_KIND")

	// ErrMissingPermission means the capability lacked a required right.
	ErrMissingPermission = errors.New("E_MISSING_PERMISSION")

	// ErrBoundsExceeded means a memory-capability access ran outside the
	// capability's [phys_base, phys_base+page_count*PageSize) range, or a
	// guest pointer fell outside the instance's linear memory.
	ErrBoundsExceeded = errors.New("E_BOUNDS_EXCEEDED")

	// ErrQueueFull means an IPC queue push found the ring at capacity.
	ErrQueueFull = errors.New("E_QUEUE_FULL")

	// ErrTableFull means a capability table insert found no empty slot.
	ErrTableFull = errors.New("E_TABLE_FULL")

	// ErrNoSuchTarget means a send's endpoint resolved to an actor id with
	// no live process.
	ErrNoSuchTarget = errors.New("E_NO_SUCH_TARGET")

	// ErrAlreadyDead means an operation targeted a process already in the
	// Dead state.
	ErrAlreadyDead = errors.New("E_ALREADY_DEAD")

	// ErrAlreadyChanged means a futex wait's expected value did not match
	// the word currently at the address.
	ErrAlreadyChanged = errors.New("E_ALREADY_CHANGED")

	// ErrUnsupported means a syscall number or operation has no handler.
	ErrUnsupported = errors.New("E_UNSUPPORTED")

	// ErrBadEncoding means a message, handle, or archive header failed to
	// parse per its wire format.
	ErrBadEncoding = errors.New("E_BAD_ENCODING")

	// ErrOutOfMemory means the backing arena could not satisfy an
	// allocation request.
	ErrOutOfMemory = errors.New("E_OUT_OF_MEMORY")

	// ErrGuestTrap means the guest module executed an invalid operation;
	// the caller must transition the owning process to Dead, not crash.
	ErrGuestTrap = errors.New("E_GUEST_TRAP")

	// ErrBackpressure is the router's name for ErrQueueFull when reporting
	// send failures (spec's "BackpressureFull").
	ErrBackpressure = ErrQueueFull
)

// Sentinel is the single ABI-level failure value returned to guest code by
// any syscall that would otherwise return an unsigned result.
const Sentinel uint64 = ^uint64(0)

// Sentinel32 is the guest ABI's 32-bit failure sentinel, used by syscalls
// whose wire return value is a u32 status rather than a u64 result.
const Sentinel32 uint32 = ^uint32(0)
