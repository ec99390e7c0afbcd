// Package cli implements beamctl, the operator command line for commissioning
// a beamline: checking and importing beamline files, switching profiles and
// driving devices in-process.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/urmzd/beamline/pkg/beamline"
	"github.com/urmzd/beamline/pkg/db"
)

// Options are the flags shared by every command.
type Options struct {
	DBPath   string
	Simulate bool
}

// Root returns the beamctl root command with all subcommands attached.
func Root() *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:   "beamctl",
		Short: "Operate beamline valves and pressure cells",
		Long: `beamctl validates and imports beamline files, manages profiles and drives
devices directly. Device commands open the hardware themselves, so do not run
them against endpoints a beamline API server is already driving.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.DBPath, "db", "", "Path to database file (default: <user config dir>/beamline/beamline.db)")
	root.PersistentFlags().BoolVar(&opts.Simulate, "simulate", false, "Use simulated hardware regardless of the profile setting")

	root.AddCommand(ValidateCmd())
	root.AddCommand(ImportCmd(opts))
	root.AddCommand(ProfileCmd(opts))
	root.AddCommand(DevicesCmd(opts))
	root.AddCommand(DoCmd(opts))
	root.AddCommand(GoCmd(opts))
	root.AddCommand(ResetCmd(opts))

	return root
}

func (o *Options) open(ctx context.Context) (*db.DB, error) {
	return db.OpenAndMigrate(ctx, o.DBPath)
}

// session opens the database and starts the active profile's beamline.
// The returned func closes both.
func (o *Options) session(ctx context.Context) (*beamline.Beamline, func(), error) {
	database, err := o.open(ctx)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := database.ActiveConfig(ctx)
	if err != nil {
		_ = database.Close()
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	bl, err := beamline.New(ctx, cfg.Beamline, beamline.Options{Simulate: o.Simulate || cfg.Simulate()})
	if err != nil {
		_ = database.Close()
		return nil, nil, err
	}
	return bl, func() {
		_ = bl.Close()
		_ = database.Close()
	}, nil
}
