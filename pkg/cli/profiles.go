package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/urmzd/beamline/pkg/db"
)

// ProfileCmd returns the profile command group
func ProfileCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage beamline profiles",
	}
	cmd.AddCommand(profileListCmd(opts))
	cmd.AddCommand(profileCreateCmd(opts))
	cmd.AddCommand(profileUseCmd(opts))
	return cmd
}

func profileListCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			database, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			profiles, err := database.Profiles().List(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "\tNAME\tBEAMLINE\tSIMULATE")
			for _, p := range profiles {
				marker := ""
				if p.IsActive {
					marker = color.New(color.FgGreen).Sprint("*")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", marker, p.Name, p.Beamline, p.Simulate)
			}
			return w.Flush()
		},
	}
}

func profileCreateCmd(opts *Options) *cobra.Command {
	var (
		beamlineName string
		simulate     bool
		activate     bool
	)

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			database, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			if beamlineName == "" {
				beamlineName = args[0]
			}
			p := &db.Profile{Name: args[0], Beamline: beamlineName, Simulate: simulate}
			if err := database.Profiles().Create(ctx, p); err != nil {
				return err
			}
			if activate {
				if err := database.Profiles().SetActive(ctx, p.ID); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok(fmt.Sprintf("created profile %q", p.Name)))
			return nil
		},
	}
	cmd.Flags().StringVar(&beamlineName, "beamline", "", "Beamline name (default: the profile name)")
	cmd.Flags().BoolVar(&simulate, "sim", false, "Run this profile on simulated hardware")
	cmd.Flags().BoolVar(&activate, "activate", false, "Make the new profile active")
	return cmd
}

func profileUseCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "use NAME",
		Short: "Make a profile active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			database, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			p, err := database.Profiles().GetByName(ctx, args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if err := database.Profiles().SetActive(ctx, p.ID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok(fmt.Sprintf("profile %q is active", p.Name)))
			return nil
		},
	}
}
