package guest

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"nanokern/internal/capability"
	"nanokern/internal/ipc"
	"nanokern/internal/kernelerr"
	"nanokern/internal/process"
)

type ctxKey struct{}

var procCtxKey = ctxKey{}

// withProcess threads p through the context passed to an exported
// function's Call, which wazero propagates into every host function it
// invokes during that call chain. This is how the shared "nanokern" host
// module tells which actor is calling it without a per-process module
// instance.
func withProcess(ctx context.Context, p *process.Process) context.Context {
	return context.WithValue(ctx, procCtxKey, p)
}

func processFrom(ctx context.Context) *process.Process {
	p, _ := ctx.Value(procCtxKey).(*process.Process)
	return p
}

// checkQuantum is called at the top of every host function except
// sys_exit and sys_cap_recv, which hand the core back themselves. Host
// calls are the only points at which a running guest can be preempted
// (spec 4.G, 5: pure guest computation between host calls is not a
// suspension point).
func (l *Loader) checkQuantum(ctx context.Context, p *process.Process) {
	if p == nil {
		return
	}
	core := l.coreByID(p.CoreID)
	if core.QuantumExpired(p) {
		core.Preempt(p)
	}
}

func (l *Loader) buildHostModule(ctx context.Context) error {
	b := l.rt.NewHostModuleBuilder(hostModuleName)

	b.NewFunctionBuilder().WithFunc(l.hostLog).Export("sys_log")
	b.NewFunctionBuilder().WithFunc(l.hostExit).Export("sys_exit")
	b.NewFunctionBuilder().WithFunc(l.hostSpawn).Export("sys_spawn")
	b.NewFunctionBuilder().WithFunc(l.hostCapSend).Export("sys_cap_send")
	b.NewFunctionBuilder().WithFunc(l.hostCapRecv).Export("sys_cap_recv")
	b.NewFunctionBuilder().WithFunc(l.hostCapMemRead).Export("sys_cap_mem_read")
	b.NewFunctionBuilder().WithFunc(l.hostCapMemWrite).Export("sys_cap_mem_write")

	_, err := b.Instantiate(ctx)
	return err
}

// errStatus maps a kernel error to the guest ABI's u32 status sentinel:
// zero for success, kernelerr.Sentinel32 for any failure. The guest ABI
// does not distinguish error kinds across the wasm boundary beyond
// success/failure; a guest wanting detail uses sys_log from its own error
// path before treating the call as failed.
func errStatus(err error) uint32 {
	if err == nil {
		return 0
	}
	return kernelerr.Sentinel32
}

// hostLog implements sys_log(ptr, len): copies len bytes of guest memory
// starting at ptr into the host log, tagged with the calling actor's name.
func (l *Loader) hostLog(ctx context.Context, mod api.Module, ptr, length uint32) {
	p := processFrom(ctx)
	l.checkQuantum(ctx, p)
	if p == nil {
		return
	}
	buf, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return
	}
	l.gateway.Log(p, string(buf))
}

// hostExit implements sys_exit(code): unwinds the guest call via
// CloseWithExitCode so _start's Call returns a sys.ExitError to run,
// rather than continuing to execute guest code past the exit point.
func (l *Loader) hostExit(ctx context.Context, mod api.Module, code uint32) {
	p := processFrom(ctx)
	if p == nil {
		return
	}
	core := l.coreByID(p.CoreID)
	l.gateway.Exit(p, core)
	_ = mod.CloseWithExitCode(ctx, code)
}

// hostSpawn implements sys_spawn(name_ptr, name_len) -> actor id. The
// named image must already be compiled (typically pre-loaded from the
// boot archive); unknown names return kernelerr.Sentinel.
func (l *Loader) hostSpawn(ctx context.Context, mod api.Module, namePtr, nameLen uint32) uint64 {
	p := processFrom(ctx)
	l.checkQuantum(ctx, p)
	if p == nil {
		return kernelerr.Sentinel
	}
	buf, ok := mod.Memory().Read(namePtr, nameLen)
	if !ok {
		return kernelerr.Sentinel
	}
	entry, ok := l.EntryFor(string(buf))
	if !ok {
		return kernelerr.Sentinel
	}
	child, err := l.gateway.Spawn(string(buf), entry)
	if err != nil {
		return kernelerr.Sentinel
	}
	return uint64(child.ID)
}

// hostCapSend implements sys_cap_send(handle, msg_ptr) -> status. msg_ptr
// addresses exactly ipc.Size bytes of the guest's linear memory, encoded
// per the wire Message layout.
func (l *Loader) hostCapSend(ctx context.Context, mod api.Module, handle uint64, msgPtr uint32) uint32 {
	p := processFrom(ctx)
	l.checkQuantum(ctx, p)
	if p == nil {
		return kernelerr.Sentinel32
	}
	raw, ok := mod.Memory().Read(msgPtr, ipc.Size)
	if !ok {
		return errStatus(kernelerr.ErrBoundsExceeded)
	}
	msg, err := ipc.Decode(raw)
	if err != nil {
		return errStatus(err)
	}
	return errStatus(l.gateway.CapSend(p, capability.Handle(handle), msg))
}

// hostCapRecv implements sys_cap_recv(buf_ptr) -> status, blocking the
// calling process on its resident core until a message arrives, then
// writing it into buf_ptr.
func (l *Loader) hostCapRecv(ctx context.Context, mod api.Module, bufPtr uint32) uint32 {
	p := processFrom(ctx)
	if p == nil {
		return kernelerr.Sentinel32
	}
	core := l.coreByID(p.CoreID)
	msg := l.gateway.CapRecv(p, core)
	enc := msg.Encode()
	if !mod.Memory().Write(bufPtr, enc[:]) {
		return errStatus(kernelerr.ErrBoundsExceeded)
	}
	return 0
}

// hostCapMemRead implements sys_cap_mem_read(handle, offset, dst_ptr, len)
// -> status.
func (l *Loader) hostCapMemRead(ctx context.Context, mod api.Module, handle, offset uint64, dstPtr, length uint32) uint32 {
	p := processFrom(ctx)
	l.checkQuantum(ctx, p)
	if p == nil {
		return kernelerr.Sentinel32
	}
	buf := make([]byte, length)
	if err := l.gateway.MemRead(p, capability.Handle(handle), offset, buf); err != nil {
		return errStatus(err)
	}
	if !mod.Memory().Write(dstPtr, buf) {
		return errStatus(kernelerr.ErrBoundsExceeded)
	}
	return 0
}

// hostCapMemWrite implements sys_cap_mem_write(handle, offset, src_ptr,
// len) -> status.
func (l *Loader) hostCapMemWrite(ctx context.Context, mod api.Module, handle, offset uint64, srcPtr, length uint32) uint32 {
	p := processFrom(ctx)
	l.checkQuantum(ctx, p)
	if p == nil {
		return kernelerr.Sentinel32
	}
	buf, ok := mod.Memory().Read(srcPtr, length)
	if !ok {
		return errStatus(kernelerr.ErrBoundsExceeded)
	}
	return errStatus(l.gateway.MemWrite(p, capability.Handle(handle), offset, buf))
}
