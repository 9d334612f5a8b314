package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"norse/internal/config"
	"norse/internal/input"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Bindings  string
	UDPListen string
	WSURL     string
	APIListen string
	Record    string
	Duration  time.Duration
	TickHz    int

	// Source overrides every configured event source (for testing).
	Source input.EventSource
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Synchronize actions from live input",
		Long: `Load the bindings, start the configured event sources and synchronize
every action set at tick_hz until interrupted.

Changed action states are logged each tick. Flags override the config file.

Examples:
  norse run --bindings ./bindings.yaml
  norse run --udp :19090 --record ./session.db
  norse run --api 127.0.0.1:19092
  norse run --duration 10s --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Bindings, "bindings", "b", "", "YAML bindings file")
	cmd.Flags().StringVar(&opts.UDPListen, "udp", "", "listen for UDP input events on this address")
	cmd.Flags().StringVar(&opts.WSURL, "ws", "", "read input events from this WebSocket URL")
	cmd.Flags().StringVar(&opts.APIListen, "api", "", "serve live action states over HTTP/WebSocket on this address")
	cmd.Flags().StringVar(&opts.Record, "record", "", "record drained events to this SQLite file")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().IntVar(&opts.TickHz, "tick-hz", 0, "synchronizations per second")

	return cmd
}

func (opts *RunOptions) apply(cfg *config.Config) {
	if opts.Bindings != "" {
		cfg.BindingsFile = opts.Bindings
	}
	if opts.UDPListen != "" {
		cfg.UDPListen = opts.UDPListen
	}
	if opts.WSURL != "" {
		cfg.WSURL = opts.WSURL
	}
	if opts.APIListen != "" {
		cfg.APIListen = opts.APIListen
	}
	if opts.Record != "" {
		cfg.RecordPath = opts.Record
	}
	if opts.TickHz > 0 {
		cfg.TickHz = opts.TickHz
	}
}

func runSync(opts *RunOptions, cmd *cobra.Command) error {
	cfg, logger, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	opts.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	rt, err := newRuntime(ctx, cfg, logger, runtimeOptions{
		Source:  opts.Source,
		Record:  cfg.RecordPath != "",
		Version: opts.Version,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("Running", "session", rt.session.ID().String(), "tick_hz", cfg.TickHz, "actions", len(rt.applied.Actions))

	ticker := time.NewTicker(time.Second / time.Duration(cfg.TickHz))
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			if err := rt.tick(); err != nil {
				return WrapExitError(ExitFailure, "sync failed", err)
			}
			reports := rt.snapshot()
			rt.publish(reports)
			for _, rep := range reports {
				if rep.Changed {
					logger.Info("Action changed", "action", rep.label(), "value", rep.Value, "frame", rt.session.Frame())
				}
			}
		}
	}

	if rt.queue != nil {
		if dropped := rt.queue.Dropped(); dropped > 0 {
			logger.Warn("Events dropped while the queue was full", "dropped", dropped)
		}
	}
	return printReports(cmd, opts.Format, rt.session.Frame(), rt.snapshot())
}

type runSummary struct {
	Frames  uint64         `json:"frames"`
	Actions []actionReport `json:"actions"`
}

func printReports(cmd *cobra.Command, format string, frames uint64, reports []actionReport) error {
	if format == "json" {
		return writeJSON(cmd.OutOrStdout(), runSummary{Frames: frames, Actions: reports})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Frames: %d\n", frames)
	for _, rep := range reports {
		fmt.Fprintf(out, "  %-32s %-16s %s\n", rep.label(), rep.Type, rep.Value)
	}
	return nil
}
