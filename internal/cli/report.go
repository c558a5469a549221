package cli

import (
	"github.com/spf13/cobra"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	TopCustomers int
	TopProducts  int
	DryRun       bool
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Rank high spenders, frequent shoppers and best selling products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.TopCustomers, "top-customers", 0, "customers per ranking (overrides config top_customers)")
	cmd.Flags().IntVar(&opts.TopProducts, "top-products", 0, "products in the best seller list (overrides config top_products)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "do not write the report to the database")

	return cmd
}

func runReport(cmd *cobra.Command, opts *ReportOptions) (err error) {
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

	if cmd.Flags().Changed("top-customers") {
		if opts.TopCustomers < 1 {
			return NewExitError(ExitCommandError, "--top-customers must be at least 1")
		}
		e.cfg.TopCustomers = opts.TopCustomers
	}
	if cmd.Flags().Changed("top-products") {
		if opts.TopProducts < 1 {
			return NewExitError(ExitCommandError, "--top-products must be at least 1")
		}
		e.cfg.TopProducts = opts.TopProducts
	}

	svc, err := e.newService(ctx, !opts.DryRun)
	if err != nil {
		return err
	}

	rep, err := svc.Report(ctx)
	if err != nil {
		return wrapRunError("report failed", err)
	}
	return e.emit(cmd, "report", rep)
}
