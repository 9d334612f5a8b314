package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"norse/internal/record"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string
	Bindings string
}

type sessionRow struct {
	ID        string    `json:"id"`
	Profile   string    `json:"profile"`
	CreatedAt time.Time `json:"created_at"`
	Events    int       `json:"events"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a recorded session",
		Long: `Feed a recorded session back through the bindings, one recorded frame per
tick, and print the final action states.

Without --session the recorded sessions are listed.

Examples:
  norse replay --db ./session.db
  norse replay --db ./session.db --session 6f1c... --bindings ./bindings.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the recording database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to replay")
	cmd.Flags().StringVarP(&opts.Bindings, "bindings", "b", "", "YAML bindings file")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, logger, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	if opts.Bindings != "" {
		cfg.BindingsFile = opts.Bindings
	}

	store, err := record.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer store.Close()

	if opts.Session == "" {
		return listSessions(opts, cmd, store)
	}

	id, err := uuid.Parse(opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid session id", err)
	}
	replay, err := record.LoadReplay(ctx, store, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load session", err)
	}

	// a replay never records and never opens live sources or servers
	cfg.UDPListen, cfg.WSURL, cfg.APIListen = "", "", ""
	rt, err := newRuntime(ctx, cfg, logger, runtimeOptions{Source: replay, Version: opts.Version})
	if err != nil {
		return err
	}
	defer rt.Close()

	for frame := uint64(0); frame < replay.Frames(); frame++ {
		if err := rt.tick(); err != nil {
			return WrapExitError(ExitFailure, "sync failed", err)
		}
	}
	logger.Info("Replay finished", "session", id.String(), "frames", replay.Frames())
	return printReports(cmd, opts.Format, rt.session.Frame(), rt.snapshot())
}

func listSessions(opts *ReplayOptions, cmd *cobra.Command, store *record.Store) error {
	sessions, err := store.Sessions(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}
	rows := make([]sessionRow, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, sessionRow{ID: s.ID.String(), Profile: s.Profile, CreatedAt: s.CreatedAt, Events: s.Events})
	}
	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), rows)
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "No sessions recorded.")
		return nil
	}
	for _, r := range rows {
		fmt.Fprintf(out, "%s  %s  %6d events  %s\n", r.ID, r.CreatedAt.Format(time.RFC3339), r.Events, r.Profile)
	}
	return nil
}
