package syscall

import (
	"sync"

	"nanokern/internal/capability"
	"nanokern/internal/devio"
	"nanokern/internal/futex"
	"nanokern/internal/logsink"
	"nanokern/internal/memobj"
	"nanokern/internal/pipe"
	"nanokern/internal/process"
)

// Core is the subset of scheduler.Core the gateway needs, expressed as an
// interface so this package does not import scheduler: a process blocking
// on recv/futex/sleep, or exiting, always does so through its own
// resident core.
type Core interface {
	Suspend(p *process.Process)
	Sleep(p *process.Process, untilTick int64)
	Exit(p *process.Process)
	QuantumExpired(p *process.Process) bool
	Preempt(p *process.Process)
}

type perProcessState struct {
	mu     sync.Mutex
	pipes  map[uint32]*pipe.Pipe
	nextPH uint32
	events *devio.EventQueue
	input  devio.Source
}

// Gateway is the shared state behind every syscall number and every named
// WASM host import: the process registry, the message router, the futex
// table, the physical memory arenas backing Memory capabilities, and the
// per-process pipe/input bookkeeping the supplemented syscalls need.
type Gateway struct {
	Registry *process.Registry
	Router   *process.Router
	Futex    *futex.Table
	Clock    func() int64

	logger *logsink.Logger

	// Place assigns a freshly spawned process to a core and starts its
	// goroutine (scheduler.Scheduler.PlaceRoundRobin). Set during boot
	// wiring; this package never imports scheduler directly, to keep the
	// capability<-ipc<-process<-scheduler<-syscall dependency chain
	// one-directional.
	Place func(*process.Process)

	// EntryResolver resolves a spawn-by-name request (sys_spawn, SysSpawn)
	// to a runnable Entry, typically guest.Loader.EntryFor. Spawn requests
	// naming an actor the resolver does not recognize fail with
	// kernelerr.ErrUnsupported.
	EntryResolver func(name string) (process.Entry, bool)

	mu     sync.Mutex
	arenas map[uint64]*memobj.Arena // keyed by Object.PhysBase
	nextPB uint64

	stateMu sync.Mutex
	state   map[capability.ActorID]*perProcessState
}

// NewGateway wires a Gateway over the given registry, router, and futex
// table. clock returns the current tick count (scheduler.Clock.Now).
func NewGateway(registry *process.Registry, router *process.Router, futexTable *futex.Table, log *logsink.Logger, clock func() int64) *Gateway {
	return &Gateway{
		Registry: registry,
		Router:   router,
		Futex:    futexTable,
		Clock:    clock,
		logger:   log,
		arenas:   make(map[uint64]*memobj.Arena),
		state:    make(map[capability.ActorID]*perProcessState),
	}
}

// AllocateMemory reserves a fresh Memory capability object backed by a new
// Arena of pageCount pages, for boot-time capability seeding (e.g. the
// one-page region cmd/nanokernd grants the chaos actor).
func (g *Gateway) AllocateMemory(pageCount uint32) (capability.Object, *memobj.Arena) {
	g.mu.Lock()
	defer g.mu.Unlock()
	base := g.nextPB
	g.nextPB += uint64(pageCount) * memobj.PageSize
	arena := memobj.NewArena(pageCount)
	g.arenas[base] = arena
	return capability.Object{Kind: capability.KindMemory, PhysBase: base, PageCount: pageCount}, arena
}

func (g *Gateway) arenaFor(obj capability.Object) (*memobj.Arena, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.arenas[obj.PhysBase]
	return a, ok
}

func (g *Gateway) stateFor(p *process.Process) *perProcessState {
	g.stateMu.Lock()
	defer g.stateMu.Unlock()
	s, ok := g.state[p.ID]
	if !ok {
		s = &perProcessState{pipes: make(map[uint32]*pipe.Pipe), events: devio.NewEventQueue()}
		g.state[p.ID] = s
	}
	return s
}

// SetInputSource attaches an input device collaborator to p, used by
// read-input. Processes with no attached source simply never receive
// input events.
func (g *Gateway) SetInputSource(p *process.Process, src devio.Source) {
	g.stateFor(p).input = src
}

// PushEvent injects an event directly into p's event queue, used by tests
// and by an input source's own delivery loop (outside the scope of this
// repository) rather than relying on read-input polling alone.
func (g *Gateway) PushEvent(p *process.Process, e devio.Event) {
	g.stateFor(p).events.Push(e)
}
