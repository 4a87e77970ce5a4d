// Package guest is the WebAssembly Actor Runtime (spec section 4.I,
// component I): it compiles guest .wasm modules with wazero, instantiates
// one sandboxed guest per actor, and bridges the four named cap_* host
// imports plus sys_spawn/sys_log/sys_exit straight into the syscall
// gateway. Guest traps always transition the offending actor to Dead; they
// never reach the host as a panic.
package guest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/sys"
	"golang.org/x/sync/singleflight"

	"nanokern/internal/logsink"
	"nanokern/internal/process"
	"nanokern/internal/syscall"
)

// hostModuleName is the import module name every guest .wasm is compiled
// against for its sys_* imports.
const hostModuleName = "nanokern"

// entrypoint is the exported guest function invoked on first dispatch,
// mirroring a WASI-style _start, but this ABI is custom, not WASI.
const entrypoint = "_start"

// Loader compiles and runs guest actors on a single shared wazero Runtime.
// One host module, built once, serves every guest instance; the calling
// process is threaded through via context rather than per-instance host
// module duplication, so compiled modules are reusable across processes
// without recompilation.
type Loader struct {
	rt       wazero.Runtime
	gateway  *syscall.Gateway
	coreByID func(coreID int) syscall.Core
	log      *logsink.Logger

	sf singleflight.Group

	mu      sync.Mutex
	modules map[string]wazero.CompiledModule
}

// NewLoader builds the shared wazero Runtime and installs the nanokern
// host module. coreByID resolves a process's resident core to the narrow
// syscall.Core interface, used to honor Suspend/Sleep/Exit/quantum checks
// at every host-call boundary.
func NewLoader(ctx context.Context, gateway *syscall.Gateway, coreByID func(int) syscall.Core, log *logsink.Logger) (*Loader, error) {
	l := &Loader{
		rt:       wazero.NewRuntime(ctx),
		gateway:  gateway,
		coreByID: coreByID,
		log:      log,
		modules:  make(map[string]wazero.CompiledModule),
	}
	if err := l.buildHostModule(ctx); err != nil {
		return nil, fmt.Errorf("guest: build host module: %w", err)
	}
	return l, nil
}

// Close tears down the wazero Runtime and every module compiled against
// it.
func (l *Loader) Close(ctx context.Context) error {
	return l.rt.Close(ctx)
}

// Compile compiles and caches a guest module under name (typically the
// archive record name it was loaded from). Concurrent compiles of the same
// name are deduplicated via singleflight, since boot-time spawn fan-out
// can request the same actor image from several goroutines at once.
func (l *Loader) Compile(ctx context.Context, name string, wasmBytes []byte) error {
	_, err, _ := l.sf.Do(name, func() (any, error) {
		l.mu.Lock()
		if _, ok := l.modules[name]; ok {
			l.mu.Unlock()
			return nil, nil
		}
		l.mu.Unlock()

		cm, err := l.rt.CompileModule(ctx, wasmBytes)
		if err != nil {
			return nil, fmt.Errorf("guest: compile %s: %w", name, err)
		}
		l.mu.Lock()
		l.modules[name] = cm
		l.mu.Unlock()
		return nil, nil
	})
	return err
}

// EntryFor resolves a compiled module name to a process.Entry, satisfying
// syscall.Gateway.EntryResolver's shape so sys_spawn can name a guest image
// the same way it would name a builtin Go actor.
func (l *Loader) EntryFor(name string) (process.Entry, bool) {
	l.mu.Lock()
	cm, ok := l.modules[name]
	l.mu.Unlock()
	if !ok {
		return nil, false
	}
	return func(p *process.Process) {
		l.run(p, cm)
	}, true
}

// run instantiates cm fresh for p and invokes its entrypoint. Guest traps
// (non-exit errors from the call) transition p to Dead through its
// resident core exactly as a clean sys_exit would, per spec's guest-trap
// isolation guarantee; the kernel itself never observes a panic.
func (l *Loader) run(p *process.Process, cm wazero.CompiledModule) {
	ctx := withProcess(context.Background(), p)
	core := l.coreByID(p.CoreID)

	cfg := wazero.NewModuleConfig().WithName(fmt.Sprintf("%s-%d", p.Name, p.ID))
	mod, err := l.rt.InstantiateModule(ctx, cm, cfg)
	if err != nil {
		l.log.Warnf("guest %s: instantiate failed: %v", p.Name, err)
		core.Exit(p)
		return
	}
	p.GuestEnv = guestEnv{mod: mod}

	start := mod.ExportedFunction(entrypoint)
	if start == nil {
		l.log.Warnf("guest %s: no %s export", p.Name, entrypoint)
		core.Exit(p)
		return
	}

	_, callErr := start.Call(ctx)
	var exitErr *sys.ExitError
	switch {
	case callErr == nil:
		// fell off the end of _start without calling sys_exit
	case errors.As(callErr, &exitErr):
		// hostExit already drove the process to Dead via core.Exit
		return
	default:
		l.log.Warnf("guest %s: trapped: %v", p.Name, callErr)
	}
	if p.State() != process.Dead {
		core.Exit(p)
	}
}

// guestEnv adapts an api.Module to process.GuestEnv.
type guestEnv struct{ mod interface{ Close(context.Context) error } }

func (g guestEnv) Close() error { return g.mod.Close(context.Background()) }
