package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/custseg/internal/seed"
	"github.com/okian/custseg/pkg/logger"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Customers int
	Seed      int64
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the Customer and Orders tables with synthetic data",
		Long: `Create the Customer and Orders tables when missing and upsert a reproducible
synthetic dataset. Intended for local sqlite or development databases.

Example:
  CUSTSEG_DATABASE_DRIVER=sqlite3 CUSTSEG_DATABASE_URL=./shop.db custseg seed --customers 500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Customers, "customers", "n", seed.DefaultCustomers, "number of customers to generate")
	cmd.Flags().Int64Var(&opts.Seed, "seed", seed.DefaultSeed, "generator seed")

	return cmd
}

func runSeed(cmd *cobra.Command, opts *SeedOptions) (err error) {
	if opts.Customers < 1 {
		return NewExitError(ExitCommandError, "--customers must be at least 1")
	}
	ctx := cmd.Context()
	e, err := setup(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.close(); cerr != nil && err == nil {
			err = WrapExitError(ExitFailure, "failed to close resources", cerr)
		}
	}()

	ref, err := e.cfg.Reference()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid reference_time", err)
	}
	ds, err := seed.New(
		seed.WithCustomers(opts.Customers),
		seed.WithSeed(opts.Seed),
		seed.WithReferenceTime(ref),
	).Generate()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to generate data", err)
	}

	if err := e.store.EnsureSourceSchema(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to prepare source tables", err)
	}
	if err := e.store.SaveCustomers(ctx, ds.Customers, ds.Orders); err != nil {
		return WrapExitError(ExitFailure, "failed to save data", err)
	}

	e.log.Info(ctx, "seeded", logger.Int("customers", len(ds.Customers)), logger.Int("orders", len(ds.Orders)))
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d customers and %d orders\n", len(ds.Customers), len(ds.Orders))
	return nil
}
