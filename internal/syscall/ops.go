package syscall

import (
	"nanokern/internal/capability"
	"nanokern/internal/devio"
	"nanokern/internal/ipc"
	"nanokern/internal/kernelerr"
	"nanokern/internal/pipe"
	"nanokern/internal/process"
)

// maxLogBytes bounds sys_log's guest-supplied length, per spec section 6
// ("length is bounded by a small constant, >= 256 bytes").
const maxLogBytes = 1024

// Log appends text to the host log tagged with p's name, truncating to
// maxLogBytes as the guest ABI requires.
func (g *Gateway) Log(p *process.Process, text string) {
	if len(text) > maxLogBytes {
		text = text[:maxLogBytes]
	}
	g.logger.Infof("[%s] %s", p.Name, text)
}

// Exit marks p Dead on its resident core and removes it from the
// registry. It returns once the core has been told p exited; the caller
// must not run any further work for p after that.
func (g *Gateway) Exit(p *process.Process, core Core) {
	g.Registry.Remove(p.ID)
	core.Exit(p)
}

// Spawn creates a new process named name, backed by entry, and places it
// on a core via g.Place. Returns kernelerr.ErrUnsupported if Place was
// never configured (boot wiring bug, not a guest-reachable condition).
func (g *Gateway) Spawn(name string, entry process.Entry) (*process.Process, error) {
	if g.Place == nil {
		return nil, kernelerr.ErrUnsupported
	}
	p := g.Registry.Spawn(name, entry)
	g.Place(p)
	return p, nil
}

// CapSend runs the eight-step send (spec 4.C) on sender's behalf.
func (g *Gateway) CapSend(sender *process.Process, srcHandle capability.Handle, msg ipc.Message) error {
	return g.Router.Send(sender, srcHandle, msg)
}

// CapRecv runs the blocking receive contract (spec 4.D) on p's behalf,
// parking it on core if its mailbox is currently empty.
func (g *Gateway) CapRecv(p *process.Process, core Core) ipc.Message {
	return process.Recv(p, core)
}

// MemRead validates capHandle as a Memory capability with Read rights in
// p's table, then copies from the backing arena at offset into dst.
func (g *Gateway) MemRead(p *process.Process, capHandle capability.Handle, offset uint64, dst []byte) error {
	resolved, ok := p.CapTable.Lookup(capHandle)
	if !ok {
		return kernelerr.ErrBadHandle
	}
	if resolved.Object.Kind != capability.KindMemory {
		return kernelerr.ErrWrongKind
	}
	if !resolved.Rights.Has(capability.Read) {
		return kernelerr.ErrMissingPermission
	}
	arena, ok := g.arenaFor(resolved.Object)
	if !ok {
		return kernelerr.ErrBadHandle
	}
	return arena.ReadAt(dst, offset)
}

// MemWrite validates capHandle as a Memory capability with Write rights
// in p's table, then copies src into the backing arena at offset.
func (g *Gateway) MemWrite(p *process.Process, capHandle capability.Handle, offset uint64, src []byte) error {
	resolved, ok := p.CapTable.Lookup(capHandle)
	if !ok {
		return kernelerr.ErrBadHandle
	}
	if resolved.Object.Kind != capability.KindMemory {
		return kernelerr.ErrWrongKind
	}
	if !resolved.Rights.Has(capability.Write) {
		return kernelerr.ErrMissingPermission
	}
	arena, ok := g.arenaFor(resolved.Object)
	if !ok {
		return kernelerr.ErrBadHandle
	}
	return arena.WriteAt(src, offset)
}

// PipeCreate allocates a new anonymous pipe local to p and returns its
// opaque per-process handle.
func (g *Gateway) PipeCreate(p *process.Process) uint32 {
	s := g.stateFor(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.nextPH
	s.nextPH++
	s.pipes[h] = pipe.New()
	return h
}

// PipeWrite writes data into p's pipe h.
func (g *Gateway) PipeWrite(p *process.Process, h uint32, data []byte) (int, error) {
	s := g.stateFor(p)
	s.mu.Lock()
	pp, ok := s.pipes[h]
	s.mu.Unlock()
	if !ok {
		return 0, kernelerr.ErrBadHandle
	}
	return pp.Write(data)
}

// PipeRead reads from p's pipe h into dst.
func (g *Gateway) PipeRead(p *process.Process, h uint32, dst []byte) (int, error) {
	s := g.stateFor(p)
	s.mu.Lock()
	pp, ok := s.pipes[h]
	s.mu.Unlock()
	if !ok {
		return 0, kernelerr.ErrBadHandle
	}
	return pp.Read(dst)
}

// PipeClose closes p's pipe h.
func (g *Gateway) PipeClose(p *process.Process, h uint32) error {
	s := g.stateFor(p)
	s.mu.Lock()
	pp, ok := s.pipes[h]
	s.mu.Unlock()
	if !ok {
		return kernelerr.ErrBadHandle
	}
	pp.Close()
	return nil
}

// Time returns the current tick count, distinct from Sleep in that it
// never blocks (spec: "time syscall returns the monotonic tick counter
// directly").
func (g *Gateway) Time() int64 { return g.Clock() }

// Sleep parks p until tick untilTick on its resident core.
func (g *Gateway) Sleep(p *process.Process, core Core, untilTick int64) {
	core.Sleep(p, untilTick)
}

// FutexWait parks p on addr if check (evaluated under the futex table's
// lock) still holds.
func (g *Gateway) FutexWait(p *process.Process, core Core, addr uint64, check func() bool) error {
	return g.Futex.Wait(p, core, addr, check)
}

// FutexWake wakes up to n waiters on addr.
func (g *Gateway) FutexWake(addr uint64, n int, waker process.Waker, fromCoreID int) int {
	return g.Futex.Wake(addr, n, waker, fromCoreID)
}

// ReadInput polls p's attached input collaborator, if any.
func (g *Gateway) ReadInput(p *process.Process) (devio.Event, bool) {
	s := g.stateFor(p)
	s.mu.Lock()
	src := s.input
	s.mu.Unlock()
	if src == nil {
		return devio.Event{}, false
	}
	return src.Poll()
}

// ReadEvent drains p's own event queue, generalized from the original's
// separate window/input event queues (spec supplement).
func (g *Gateway) ReadEvent(p *process.Process) (devio.Event, bool) {
	return g.stateFor(p).events.Pop()
}
