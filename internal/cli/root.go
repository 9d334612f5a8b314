// Package cli implements the norse command line.
package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"norse/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"
	Version    string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the norse CLI.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{Version: version}

	cmd := &cobra.Command{
		Use:   "norse",
		Short: "norse - action bindings for desktop input",
		Long: `Map raw mouse and keyboard input to application-declared actions.

Actions are declared in action sets and bound to hardware input paths such as
/user/mouse/input/delta_x/scalar. Each tick the runtime drains pending input
and recomputes every action's state.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default: per-user config.json)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewVersionCommand(opts))
	cmd.AddCommand(NewDevicesCommand(opts))
	cmd.AddCommand(NewPathsCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewInjectCommand(opts))
	cmd.AddCommand(NewTrayCommand(opts))

	return cmd
}

// loadConfig reads the config file (with env overrides) and builds the
// logger every command shares.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	var mgr *config.Manager
	if opts.ConfigPath != "" {
		mgr = config.NewManagerAt(opts.ConfigPath)
	} else {
		var err error
		if mgr, err = config.NewManager(); err != nil {
			return config.Config{}, nil, WrapExitError(ExitCommandError, "failed to locate config", err)
		}
	}
	if err := mgr.Load(); err != nil {
		return config.Config{}, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	cfg := mgr.Get()

	level, _ := cfg.SlogLevel()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	logger.Debug("Config loaded", "path", mgr.Path())
	return cfg, logger, nil
}
