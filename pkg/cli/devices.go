package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// DevicesCmd returns the devices command
func DevicesCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "Start the active profile and print every device's state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bl, done, err := opts.session(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFLAVOR\tSTATE\tPRESSURE\tACTIONS")
			for _, d := range bl.Devices() {
				pressure := "-"
				if full, err := bl.Device(cmd.Context(), d.ID); err == nil && full.Pressure != nil {
					pressure = strconv.FormatFloat(*full.Pressure, 'f', 1, 64)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					d.ID, d.Flavor, colorState(d.State), pressure, strings.Join(d.Actions, ","))
			}
			return w.Flush()
		},
	}
}

// DoCmd returns the do command
func DoCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "do DEVICE ACTION",
		Short: "Run open, close, arm, disarm or reset on a device and wait for it to settle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bl, done, err := opts.session(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			id, action := args[0], args[1]
			state, err := bl.Do(cmd.Context(), id, action)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok(fmt.Sprintf("%s %s: %s", id, action, colorState(state))))
			return nil
		},
	}
}

// GoCmd returns the go command
func GoCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "go CELL TARGET",
		Short: "Drive a pressure cell to TARGET and check the pump pressure",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.ParseFloat(args[1], 64)
			if err != nil || target < 0 {
				return fmt.Errorf("target must be a non-negative number, got %q", args[1])
			}

			bl, done, err := opts.session(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			measured, err := bl.Go(cmd.Context(), args[0], target)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok(fmt.Sprintf("%s reached %.1f (target %.1f)", args[0], measured, target)))
			return nil
		},
	}
}

// ResetCmd returns the reset command
func ResetCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset CELL",
		Short: "Run a pressure cell's valve reset sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bl, done, err := opts.session(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			if err := bl.ResetCell(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok(fmt.Sprintf("%s valves disarmed, reset and closed", args[0])))
			return nil
		},
	}
}
