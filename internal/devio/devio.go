// Package devio defines the external-collaborator boundary for input
// devices (spec section 1: PS/2 keyboard/mouse and similar are "treated as
// external collaborators" rather than modeled in kernel code). Real device
// drivers live outside this repository; this package only fixes the
// interface the syscall gateway's read-input and read-event operations
// call through, plus an in-memory fake good enough for tests and the
// reference boot configuration.
package devio

// Event is one decoded input event, generalized over the original
// kernel's separate PS/2 keyboard and mouse event shapes.
type Event struct {
	Kind    string // "key" or "pointer"
	Code    uint32
	Value   int32
	TickSeq int64
}

// Source is anything that can hand back the next pending input event.
// InputSource.Poll never blocks: it reports ok=false when nothing is
// queued, matching the syscall gateway's non-blocking read-input/
// read-event contract (spec section 6 lists these among recv/sleep/futex
// as the suspension points; read-input/read-event deliberately are not
// suspension points, same as the original's polling model).
type Source interface {
	Poll() (Event, bool)
}

// Fake is an in-memory Source backed by a fixed queue, for tests and for
// boot configurations that have no real device attached.
type Fake struct {
	events []Event
	pos    int
}

// NewFake returns a Source that replays events in order, then reports
// ok=false forever.
func NewFake(events ...Event) *Fake {
	return &Fake{events: events}
}

// Poll implements Source.
func (f *Fake) Poll() (Event, bool) {
	if f.pos >= len(f.events) {
		return Event{}, false
	}
	e := f.events[f.pos]
	f.pos++
	return e, true
}

// Push appends an event to the fake's queue, for tests that drive input
// interactively rather than pre-seeding it.
func (f *Fake) Push(e Event) {
	f.events = append(f.events, e)
}
