package cli

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"norse/internal/tray"
)

// NewTrayCommand creates the tray command.
func NewTrayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tray",
		Short: "Show live action states in the system tray",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTray(opts, cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.Bindings, "bindings", "b", "", "YAML bindings file")
	cmd.Flags().StringVar(&opts.UDPListen, "udp", "", "listen for UDP input events on this address")
	cmd.Flags().StringVar(&opts.WSURL, "ws", "", "read input events from this WebSocket URL")
	cmd.Flags().StringVar(&opts.APIListen, "api", "", "serve live action states over HTTP/WebSocket on this address")
	return cmd
}

func runTray(opts *RunOptions, cmd *cobra.Command) error {
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

	rt, err := newRuntime(ctx, cfg, logger, runtimeOptions{Version: opts.Version})
	if err != nil {
		return err
	}
	defer rt.Close()

	t := tray.New("norse", "norse "+opts.Version)
	rows := make(map[string]int)
	for _, rep := range rt.snapshot() {
		rows[rep.label()] = t.AddStatusRow(rep.label())
	}
	var paused atomic.Bool
	var pauseID int
	pauseID = t.AddMenuItem("Pause", func() {
		p := !paused.Load()
		paused.Store(p)
		t.SetItemChecked(pauseID, p)
	})
	t.AddSeparator()
	t.AddMenuItem("Quit", t.Stop)

	go func() {
		select {
		case <-ctx.Done():
			t.Stop()
		case <-t.Done():
		}
	}()

	// the tray loop owns the main thread; sessions are single-owner, so
	// ticking happens on one goroutine only
	go func() {
		<-t.Ready()
		ticker := time.NewTicker(time.Second / time.Duration(cfg.TickHz))
		defer ticker.Stop()
		for {
			select {
			case <-t.Done():
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if paused.Load() {
					continue
				}
				if err := rt.tick(); err != nil {
					logger.Error("Sync failed", "error", err)
					t.Stop()
					return
				}
				active := false
				reports := rt.snapshot()
				rt.publish(reports)
				for _, rep := range reports {
					t.SetStatus(rows[rep.label()], rep.Value)
					active = active || rep.Changed
				}
				t.SetActive(active)
			}
		}
	}()

	logger.Info("Tray running", "session", rt.session.ID().String())
	t.Run()
	return nil
}
