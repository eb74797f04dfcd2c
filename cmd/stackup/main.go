package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}

	root := &cobra.Command{
		Use:   "stackup",
		Short: "Port-aware supervisor for a local service stack",
		Long: `Stackup starts, stops, and reports on a fixed list of named local
services, each bound to a TCP port. Starting a service frees its port first
(killing whatever holds it), launches the command detached with a combined
log file and pid file, then probes an HTTP health endpoint after a grace
period. There is no automatic restart: restarting is an operator action.

Examples:
  stackup start --config stack.toml           # start everything, in order
  stackup start --config stack.toml hub       # start one service
  stackup status --config stack.toml
  stackup stop --config stack.toml dashboard
  stackup serve --config stack.toml           # control API daemon`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", "stack.toml", "path to TOML config file")
	root.PersistentFlags().StringVar(&globalFlags.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		createStartCommand(globalFlags),
		createStopCommand(globalFlags),
		createStatusCommand(globalFlags),
		createCheckCommand(globalFlags),
		createServeCommand(globalFlags),
	)
	return root
}

func createStartCommand(globalFlags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "start [service...]",
		Short: "Start all configured services, or a named subset",
		Long: `Start services in config order. A failure in one service is reported in
its outcome line and never aborts the rest; the exit code is nonzero only
for configuration faults.

Examples:
  stackup start
  stackup start hub kanban`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(globalFlags, args)
		},
	}
}

func createStopCommand(globalFlags *GlobalFlags) *cobra.Command {
	flags := &StopFlags{}
	cmd := &cobra.Command{
		Use:   "stop [service...]",
		Short: "Stop all configured services, or a named subset",
		Long: `Stop services by signalling the pid recorded in each service's pid file:
SIGTERM, a bounded wait, then SIGKILL. Stopping an already-stopped service
is a no-op.

Examples:
  stackup stop
  stackup stop dashboard --wait=5s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(globalFlags, flags, args)
		},
	}
	cmd.Flags().DurationVar(&flags.Wait, "wait", 3*time.Second, "time to wait before escalating to SIGKILL")
	return cmd
}

func createStatusCommand(globalFlags *GlobalFlags) *cobra.Command {
	flags := &StatusFlags{}
	cmd := &cobra.Command{
		Use:   "status [service...]",
		Short: "Show last known state of services",
		Long: `Report each service's last known state from its pid file and the event
store. A missing pid file or dead pid reports stopped; no HTTP probe is
performed (use 'check' for that).

Examples:
  stackup status
  stackup status hub --history`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(globalFlags, flags, args)
		},
	}
	cmd.Flags().BoolVar(&flags.History, "history", false, "also print recent supervisor events per service")
	cmd.Flags().IntVar(&flags.HistoryLimit, "limit", 20, "max history events per service")
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "print JSON instead of a table")
	return cmd
}

func createCheckCommand(globalFlags *GlobalFlags) *cobra.Command {
	flags := &StatusFlags{}
	cmd := &cobra.Command{
		Use:   "check [service...]",
		Short: "Probe service health endpoints now",
		Long: `Issue a one-shot HTTP health probe against each selected service,
regardless of grace periods. Services without a health path fall back to a
pid-file status check.

Examples:
  stackup check
  stackup check hub`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(globalFlags, flags, args)
		},
	}
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "print JSON instead of a table")
	return cmd
}

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	flags := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start services and run the control API daemon",
		Long: `Start every configured service, then serve the HTTP control API
([server] section) until SIGINT/SIGTERM. Services are left running on
shutdown; they are independent background processes.

Examples:
  stackup serve --config stack.toml
  stackup serve --no-start`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(globalFlags, flags)
		},
	}
	cmd.Flags().BoolVar(&flags.NoStart, "no-start", false, "serve the API without starting services first")
	return cmd
}
