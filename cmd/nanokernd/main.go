// Command nanokernd boots the kernel: it loads configuration, wires every
// subsystem via kernelctx.Boot, optionally seeds the VFS and chaos-monkey
// actors described by scenarios S1 and S6, then runs until a signal or a
// component failure stops it. This mirrors the teacher pack's cmd/app/micro.go
// in shape (build singletons, grant capabilities, start) but is data-driven
// from config.Config rather than a hand-written chain of RegisterService
// calls, since this kernel's actor set is boot-archive-defined, not fixed
// at compile time.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"nanokern/internal/capability"
	"nanokern/internal/chaosguest"
	"nanokern/internal/config"
	"nanokern/internal/kernelctx"
	"nanokern/internal/process"
	ksys "nanokern/internal/syscall"
	"nanokern/internal/vfsactor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "nanokernd:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "", "path to a TOML config file (optional)")
		controlAddr = flag.String("control-addr", "127.0.0.1:7777", "loopback address for the HTTP control plane; empty disables it")
		cores       = flag.Int("cores", 0, "override detected core count (0 = autodetect)")
		bootArchive = flag.String("boot-archive", "", "override the configured boot archive path")
		chaosMonkey = flag.Bool("chaos-monkey", false, "spawn the adversarial chaos actor alongside the boot archive")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *cores != 0 {
		cfg.Cores = *cores
	}
	if *bootArchive != "" {
		cfg.BootArchive = *bootArchive
	}
	if *chaosMonkey {
		cfg.ChaosMonkey = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kc, err := kernelctx.Boot(ctx, cfg, *controlAddr)
	if err != nil {
		return fmt.Errorf("boot: %w", err)
	}

	if err := seedActors(kc); err != nil {
		return fmt.Errorf("seed actors: %w", err)
	}

	kc.Log.Infof("nanokernd booted: %d cores, tick_hz=%d, quantum_ticks=%d", kc.Scheduler.NumCores(), cfg.TickHz, cfg.QuantumTicks)
	return kc.Run(ctx)
}

// seedActors spawns the optional kernel-adjacent actors a boot archive or
// cfg.ChaosMonkey calls for, wiring their capabilities before the scheduler
// ever dispatches them (kc.Run has not been called yet at this point, so
// every spawned process is still parked on its resume channel).
func seedActors(kc *kernelctx.Context) error {
	coreByID := func(id int) ksys.Core { return kc.Scheduler.Core(id) }

	var vfsProc *process.Process
	if kc.Archive != nil {
		entry := vfsactor.NewEntry(kc.Gateway, kc.Archive, coreByID)
		p, err := kc.Gateway.Spawn("vfs", entry)
		if err != nil {
			return fmt.Errorf("spawn vfs: %w", err)
		}
		vfsProc = p
		kc.Log.Infof("vfs actor spawned, serving %d archive entries", len(kc.Archive.Names()))
	}

	if kc.Config.ChaosMonkey {
		var chaosCfg chaosguest.Config
		entry := chaosguest.NewEntry(kc.Gateway, &chaosCfg, coreByID)
		p, err := kc.Gateway.Spawn("chaos", entry)
		if err != nil {
			return fmt.Errorf("spawn chaos: %w", err)
		}

		memObj, _ := kc.Gateway.AllocateMemory(1)
		memHandle, err := p.CapTable.Insert(memObj, capability.Read)
		if err != nil {
			return fmt.Errorf("grant chaos memory: %w", err)
		}

		target := p.ID
		targetName := "itself (no boot archive loaded)"
		if vfsProc != nil {
			target = vfsProc.ID
			targetName = "vfs"
		}
		epHandle, err := p.CapTable.Insert(capability.Object{Kind: capability.KindEndpoint, Target: target}, capability.Write)
		if err != nil {
			return fmt.Errorf("grant chaos endpoint: %w", err)
		}

		chaosCfg.MemHandle = memHandle
		chaosCfg.FloodTarget = epHandle
		kc.Log.Infof("chaos actor spawned, flooding %s", targetName)
	}

	return nil
}
