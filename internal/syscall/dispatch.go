package syscall

import (
	"nanokern/internal/devio"
	"nanokern/internal/kernelerr"
	"nanokern/internal/process"
)

// Request is the numbered trap-table call shape (spec section 6): one
// struct wide enough to carry any syscall's arguments, with unused fields
// simply left zero. This is the path a directly hosted Go kernel-thread
// actor uses; WASM guests instead call the four named cap_* host imports
// straight into Gateway's CapSend/CapRecv/MemRead/MemWrite (see package guest).
type Request struct {
	Num  uint32
	P    *process.Process
	Core Core

	Text string // SysLog

	Name string // SysSpawn

	Handle uint32 // SysPipeWrite/Read/Close
	Data   []byte // SysPipeWrite (input) / SysPipeRead (destination buffer)

	Ticks int64 // SysSleep: absolute wake tick

	FutexOp    string // SysFutex: "wait" or "wake"
	Addr       uint64
	Check      func() bool // SysFutex wait
	WakeCount  int         // SysFutex wake
	Waker      process.Waker
	FromCoreID int
}

// Response is Dispatch's uniform result shape; callers read only the
// field(s) relevant to the Request.Num they sent.
type Response struct {
	Err     error
	U64     uint64
	Data    []byte
	Event   devio.Event
	EventOK bool
}

// Dispatch is the single entry point component J describes: given a
// Request naming a syscall number, it runs the corresponding Gateway
// operation and returns a uniform Response. It never panics on a
// malformed request; anything it cannot make sense of comes back as
// kernelerr.ErrUnsupported.
func (g *Gateway) Dispatch(req Request) Response {
	switch req.Num {
	case SysLog:
		g.Log(req.P, req.Text)
		return Response{}

	case SysExit:
		g.Exit(req.P, req.Core)
		return Response{}

	case SysYield:
		req.Core.Preempt(req.P)
		return Response{}

	case SysSpawn:
		if g.EntryResolver == nil {
			return Response{Err: kernelerr.ErrUnsupported}
		}
		entry, ok := g.EntryResolver(req.Name)
		if !ok {
			return Response{Err: kernelerr.ErrUnsupported}
		}
		child, err := g.Spawn(req.Name, entry)
		if err != nil {
			return Response{Err: err}
		}
		return Response{U64: uint64(child.ID)}

	case SysRead:
		ev, ok := g.ReadInput(req.P)
		return Response{Event: ev, EventOK: ok}

	case SysPipeCreate:
		return Response{U64: uint64(g.PipeCreate(req.P))}

	case SysPipeWrite:
		n, err := g.PipeWrite(req.P, req.Handle, req.Data)
		return Response{U64: uint64(n), Err: err}

	case SysPipeRead:
		n, err := g.PipeRead(req.P, req.Handle, req.Data)
		return Response{U64: uint64(n), Data: req.Data[:n], Err: err}

	case SysPipeClose:
		return Response{Err: g.PipeClose(req.P, req.Handle)}

	case SysTime:
		return Response{U64: uint64(g.Time())}

	case SysSleep:
		g.Sleep(req.P, req.Core, req.Ticks)
		return Response{}

	case SysFutex:
		switch req.FutexOp {
		case "wait":
			return Response{Err: g.FutexWait(req.P, req.Core, req.Addr, req.Check)}
		case "wake":
			n := g.FutexWake(req.Addr, req.WakeCount, req.Waker, req.FromCoreID)
			return Response{U64: uint64(n)}
		default:
			return Response{Err: kernelerr.ErrUnsupported}
		}

	case SysReadEvent:
		ev, ok := g.ReadEvent(req.P)
		return Response{Event: ev, EventOK: ok}

	default:
		return Response{Err: kernelerr.ErrUnsupported}
	}
}
