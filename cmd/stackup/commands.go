package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/minkj/stackup"
)

// newSupervisor builds a Supervisor from the loaded config. The returned
// cleanup closes the event store. Errors here are configuration faults and
// the only ones that reach the process exit code.
func newSupervisor(g *GlobalFlags) (*stackup.Supervisor, *stackup.Config, func(), error) {
	cfg, err := stackup.LoadConfig(g.ConfigPath)
	if err != nil {
		return nil, nil, nil, err
	}
	opts := stackup.Options{
		PIDDir: cfg.PIDDir,
		LogDir: cfg.Log.Dir,
		Logger: stackup.NewLogger(g.LogLevel),
	}
	if cfg.Store != nil {
		opts.StorePath = cfg.Store.Path
		opts.StoreRetention = cfg.Store.Retention
	}
	sup, err := stackup.New(opts)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open event store: %w", err)
	}
	return sup, cfg, func() { _ = sup.Close() }, nil
}

func runStart(g *GlobalFlags, names []string) error {
	sup, cfg, cleanup, err := newSupervisor(g)
	if err != nil {
		return err
	}
	defer cleanup()
	specs, err := cfg.Subset(names)
	if err != nil {
		return err
	}
	outcomes := sup.StartAll(context.Background(), specs)
	printOutcomes(outcomes)
	// Per-service failures are reported above, not propagated to the exit code.
	return nil
}

func runStop(g *GlobalFlags, f *StopFlags, names []string) error {
	sup, cfg, cleanup, err := newSupervisor(g)
	if err != nil {
		return err
	}
	defer cleanup()
	specs, err := cfg.Subset(names)
	if err != nil {
		return err
	}
	sup.StopAll(context.Background(), specs, f.Wait)
	return nil
}

func runStatus(g *GlobalFlags, f *StatusFlags, names []string) error {
	sup, cfg, cleanup, err := newSupervisor(g)
	if err != nil {
		return err
	}
	defer cleanup()
	specs, err := cfg.Subset(names)
	if err != nil {
		return err
	}
	ctx := context.Background()
	statuses := make([]stackup.Status, 0, len(specs))
	for _, sp := range specs {
		statuses = append(statuses, sup.Status(ctx, sp))
	}
	if f.JSON {
		printJSON(statuses)
	} else {
		printStatuses(statuses)
	}
	if f.History {
		for _, sp := range specs {
			events, err := sup.History(ctx, sp.Name, f.HistoryLimit)
			if err != nil {
				fmt.Printf("%s: history unavailable: %v\n", sp.Name, err)
				continue
			}
			printHistory(sp.Name, events)
		}
	}
	return nil
}

func runCheck(g *GlobalFlags, f *StatusFlags, names []string) error {
	sup, cfg, cleanup, err := newSupervisor(g)
	if err != nil {
		return err
	}
	defer cleanup()
	specs, err := cfg.Subset(names)
	if err != nil {
		return err
	}
	ctx := context.Background()
	statuses := make([]stackup.Status, 0, len(specs))
	for _, sp := range specs {
		statuses = append(statuses, sup.Check(ctx, sp))
	}
	if f.JSON {
		printJSON(statuses)
	} else {
		printStatuses(statuses)
	}
	return nil
}

func runServe(g *GlobalFlags, f *ServeFlags) error {
	sup, cfg, cleanup, err := newSupervisor(g)
	if err != nil {
		return err
	}
	defer cleanup()
	if cfg.Server == nil || cfg.Server.Listen == "" {
		return fmt.Errorf("[server] listen must be configured to run serve")
	}

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		if err := stackup.RegisterMetricsDefault(); err != nil {
			fmt.Printf("Warning: failed to register metrics: %v\n", err)
		}
		if cfg.Metrics.Listen != "" {
			go func() {
				if err := stackup.ServeMetrics(cfg.Metrics.Listen); err != nil {
					fmt.Printf("Metrics server error: %v\n", err)
				}
			}()
		}
	}

	if !f.NoStart {
		printOutcomes(sup.StartAll(context.Background(), cfg.Specs))
	}

	server := stackup.NewHTTPServer(cfg.Server.Listen, cfg.Server.BasePath, sup, cfg.Specs, cfg.StopWait)
	fmt.Printf("Serving control API on %s%s\n", cfg.Server.Listen, cfg.Server.BasePath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	// Services stay up: they are independent background processes.
	fmt.Println("Shutting down control API...")
	return server.Close()
}
