// Package kernelctx is the boot-owned wiring point: it constructs every
// kernel singleton (capability tables live inside each process, so there is
// no global one; everything else — the registry, router, scheduler, clock,
// futex table, syscall gateway, guest loader, boot archive, control plane —
// is built exactly once here) and ties them together, mirroring the
// teacher pack's cmd/app/micro.go wiring sequence but data-driven from
// config.Config instead of a hand-written chain of RegisterService calls.
package kernelctx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"

	"nanokern/internal/bootarchive"
	"nanokern/internal/config"
	"nanokern/internal/controlplane"
	"nanokern/internal/futex"
	"nanokern/internal/guest"
	"nanokern/internal/logsink"
	"nanokern/internal/process"
	"nanokern/internal/scheduler"
	"nanokern/internal/syscall"
)

// Context is the fully wired kernel: every component named in the
// capability/IPC, scheduler, and guest-runtime subsystems, ready to Run.
type Context struct {
	Config    config.Config
	Log       *logsink.Logger
	Registry  *process.Registry
	Router    *process.Router
	Futex     *futex.Table
	Clock     *scheduler.Clock
	Scheduler *scheduler.Scheduler
	Gateway   *syscall.Gateway
	Guest     *guest.Loader
	Archive   *bootarchive.Archive
	Control   *controlplane.ControlPlane

	controlAddr string
}

// Boot constructs a Context from cfg: detects core count (honoring
// cfg.Cores, falling back to automaxprocs-adjusted GOMAXPROCS), builds the
// scheduler and its clock, wires the syscall gateway's Place and
// EntryResolver hooks to the scheduler and guest loader respectively, and
// loads cfg.BootArchive (if set), compiling every .wasm record it
// contains.
func Boot(ctx context.Context, cfg config.Config, controlAddr string) (*Context, error) {
	log := logsink.New("boot", parseLevel(cfg.LogLevel))

	cores := cfg.Cores
	if cores <= 0 {
		undo, err := maxprocs.Set(maxprocs.Logger(log.Debugf))
		if err != nil {
			log.Warnf("automaxprocs: %v", err)
		} else {
			defer undo()
		}
		cores = detectedCores()
	}

	registry := process.NewRegistry()
	clock := scheduler.NewClock(time.Second / time.Duration(cfg.TickHz))
	sched := scheduler.New(cores, cfg.QuantumTicks, clock)
	futexTable := futex.NewTable()
	router := process.NewRouter(registry, sched)
	gw := syscall.NewGateway(registry, router, futexTable, log.With("gateway"), clock.Now)
	gw.Place = sched.PlaceRoundRobin

	loader, err := guest.NewLoader(ctx, gw, func(id int) syscall.Core { return sched.Core(id) }, log.With("guest"))
	if err != nil {
		return nil, fmt.Errorf("kernelctx: new loader: %w", err)
	}
	gw.EntryResolver = loader.EntryFor

	kc := &Context{
		Config:      cfg,
		Log:         log,
		Registry:    registry,
		Router:      router,
		Futex:       futexTable,
		Clock:       clock,
		Scheduler:   sched,
		Gateway:     gw,
		Guest:       loader,
		Control:     controlplane.New(registry, sched, log.With("controlplane")),
		controlAddr: controlAddr,
	}

	if cfg.BootArchive != "" {
		archive, err := bootarchive.Load(cfg.BootArchive)
		if err != nil {
			return nil, fmt.Errorf("kernelctx: load boot archive: %w", err)
		}
		kc.Archive = archive
		for _, name := range archive.Names() {
			data, _ := archive.Get(name)
			if err := loader.Compile(ctx, name, data); err != nil {
				return nil, fmt.Errorf("kernelctx: compile %s: %w", name, err)
			}
		}
		log.Infof("boot archive loaded: %d guest images", len(archive.Names()))
	}

	return kc, nil
}

// detectedCores reports the runtime's current GOMAXPROCS, read after
// maxprocs.Set has had a chance to clamp it to a cgroup CPU quota.
func detectedCores() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		return 1
	}
	return n
}

// Run starts the clock, every scheduler core, and (if controlAddr is set)
// the HTTP control plane, blocking until ctx is canceled or any component
// fails.
func (kc *Context) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return kc.Scheduler.Run(gctx) })

	if kc.controlAddr != "" {
		g.Go(func() error {
			err := kc.Control.ListenAndServe(kc.controlAddr)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return kc.Control.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func parseLevel(s string) logsink.Level {
	switch s {
	case "debug":
		return logsink.Debug
	case "warn":
		return logsink.Warn
	case "error":
		return logsink.Error
	default:
		return logsink.Info
	}
}
