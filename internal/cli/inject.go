package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"norse/internal/input"
	"norse/internal/network"
)

// InjectOptions holds flags for the inject command.
type InjectOptions struct {
	*RootOptions
	Addr       string
	DeltaX     int
	DeltaY     int
	Button     int
	Release    bool
	Wheel      int
	Horizontal bool
	Key        uint16
	Repeat     int
	Interval   time.Duration
}

// NewInjectCommand creates the inject command.
func NewInjectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InjectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inject",
		Short: "Send input events to a running norse over UDP",
		Long: `Send synthetic input events to the UDP receiver of a running "norse run --udp".

Examples:
  norse inject --addr 127.0.0.1:19090 --dx 5
  norse inject --addr 127.0.0.1:19090 --button 1
  norse inject --addr 127.0.0.1:19090 --button 1 --release
  norse inject --addr 127.0.0.1:19090 --wheel 120 --repeat 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInject(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "127.0.0.1:19090", "receiver address")
	cmd.Flags().IntVar(&opts.DeltaX, "dx", 0, "pointer motion on x")
	cmd.Flags().IntVar(&opts.DeltaY, "dy", 0, "pointer motion on y")
	cmd.Flags().IntVar(&opts.Button, "button", 0, "mouse button (1=left 2=right 3=middle 4=x1 5=x2)")
	cmd.Flags().BoolVar(&opts.Release, "release", false, "send a release instead of a press")
	cmd.Flags().IntVar(&opts.Wheel, "wheel", 0, "wheel delta")
	cmd.Flags().BoolVar(&opts.Horizontal, "horizontal", false, "use the horizontal wheel")
	cmd.Flags().Uint16Var(&opts.Key, "key", 0, "virtual key code")
	cmd.Flags().IntVar(&opts.Repeat, "repeat", 1, "send the events this many times")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 10*time.Millisecond, "pause between repeats")

	return cmd
}

// events builds the batch described by the flags.
func (opts *InjectOptions) events() ([]input.InputEvent, error) {
	var events []input.InputEvent
	if opts.DeltaX != 0 || opts.DeltaY != 0 {
		events = append(events, input.MouseMove(opts.DeltaX, opts.DeltaY))
	}
	if opts.Button != 0 {
		if opts.Button < input.ButtonLeft || opts.Button > input.ButtonX2 {
			return nil, fmt.Errorf("button must be 1..5, got %d", opts.Button)
		}
		events = append(events, input.MouseButton(opts.Button, !opts.Release))
	}
	if opts.Wheel != 0 {
		events = append(events, input.MouseWheel(opts.Wheel, opts.Horizontal))
	}
	if opts.Key != 0 {
		events = append(events, input.Key(opts.Key, !opts.Release, 0))
	}
	if len(events) == 0 {
		return nil, errors.New("nothing to send: pass --dx/--dy, --button, --wheel or --key")
	}
	return events, nil
}

func runInject(opts *InjectOptions, cmd *cobra.Command) error {
	events, err := opts.events()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}
	_, logger, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	sender, err := network.DialUDP(opts.Addr, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to reach receiver", err)
	}
	defer sender.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
	defer cancel()
	if err := sender.Register(ctx, 3); err != nil {
		logger.Warn("Receiver did not acknowledge, sending anyway", "addr", opts.Addr, "error", err)
	}

	sent := 0
	for i := 0; i < opts.Repeat; i++ {
		if i > 0 {
			time.Sleep(opts.Interval)
		}
		for _, ev := range events {
			if err := sender.Send(ev); err != nil {
				return WrapExitError(ExitFailure, "send failed", err)
			}
			sent++
		}
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), map[string]any{"addr": opts.Addr, "sent": sent})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Sent %d event(s) to %s\n", sent, opts.Addr)
	return nil
}
