package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/urmzd/beamline/pkg/config"
)

// ValidateCmd returns the validate command
func ValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a beamline file without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			config.Normalize(cfg)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ok(fmt.Sprintf("%s: beamline %q, %d endpoints, %d devices",
				args[0], cfg.Beamline.Name, len(cfg.Beamline.Endpoints), len(cfg.Beamline.Devices))))

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFLAVOR\tENDPOINT\tTIMEOUT")
			for _, d := range cfg.Beamline.Devices {
				endpoint := d.Endpoint
				if endpoint == "" {
					endpoint = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.Flavor, endpoint, d.Timeout())
			}
			return w.Flush()
		},
	}
}

// ImportCmd returns the import command
func ImportCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the active profile's devices with a beamline file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			database, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.ImportFile(ctx, args[0]); err != nil {
				return err
			}
			cfg, err := database.ActiveConfig(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok(fmt.Sprintf("imported %d devices into profile %q",
				len(cfg.Beamline.Devices), cfg.Profile.Name)))
			return nil
		},
	}
}
