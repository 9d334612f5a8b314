package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"norse/internal/device"
	"norse/internal/engine"
	"norse/internal/input"
	"norse/internal/intern"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"version": opts.Version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "norse version %s\n", opts.Version)
			return nil
		},
	}
}

// DevicesOptions holds flags for the devices command.
type DevicesOptions struct {
	*RootOptions

	// Enumerator overrides the OS query (for testing).
	Enumerator input.DeviceEnumerator
}

type deviceRow struct {
	Handle string `json:"handle"`
	Class  string `json:"class"`
	Name   string `json:"name,omitempty"`
}

// NewDevicesCommand creates the devices command.
func NewDevicesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DevicesOptions{RootOptions: rootOpts}

	return &cobra.Command{
		Use:   "devices",
		Short: "List attached mouse and keyboard devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevices(opts, cmd)
		},
	}
}

func runDevices(opts *DevicesOptions, cmd *cobra.Command) error {
	inst, err := engine.New(engine.WithDeviceEnumerator(opts.Enumerator))
	if err != nil {
		return err
	}
	devices, err := inst.EnumeratePhysicalDevices(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "device enumeration failed", err)
	}

	rows := make([]deviceRow, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, deviceRow{Handle: fmt.Sprintf("0x%x", d.Handle), Class: d.Class.String(), Name: d.Name})
	}
	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), rows)
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "No input devices found.")
		return nil
	}
	for _, r := range rows {
		fmt.Fprintf(out, "%-10s %-9s %s\n", r.Handle, r.Class, r.Name)
	}
	return nil
}

type pathRow struct {
	Path   intern.Path `json:"path"`
	String string      `json:"string"`
	Device string      `json:"device,omitempty"`
}

// NewPathsCommand creates the paths command.
func NewPathsCommand(opts *RootOptions) *cobra.Command {
	var listInputs bool

	cmd := &cobra.Command{
		Use:   "paths [string...]",
		Short: "Intern path strings and print their ids",
		Long: `Intern each argument and print the resulting path id.

With --inputs, also list every input path the desktop devices map, e.g.
/user/mouse/input/delta_x/scalar.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := engine.New()
			if err != nil {
				return err
			}
			var rows []pathRow
			for _, s := range args {
				p := inst.StringToPath(s)
				rows = append(rows, pathRow{Path: p, String: s})
			}
			if listInputs {
				rows = append(rows, inputRows(inst)...)
			}

			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			for _, r := range rows {
				fmt.Fprintf(cmd.OutOrStdout(), "%4d  %s\n", r.Path, r.String)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&listInputs, "inputs", false, "list the mapped device input paths")
	return cmd
}

func inputRows(inst *engine.Instance) []pathRow {
	in := inst.Interner()
	reg := device.NewRegistry(in)

	var rows []pathRow
	for _, user := range reg.UserPaths() {
		dev, ok := reg.Lookup(user)
		if !ok {
			continue
		}
		userStr := in.Resolve(user)
		for _, p := range dev.Inputs() {
			full := userStr + "/input/" + in.Resolve(p)
			rows = append(rows, pathRow{Path: inst.StringToPath(full), String: full, Device: dev.Class().String()})
		}
	}
	return rows
}
