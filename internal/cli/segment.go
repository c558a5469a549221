package cli

import (
	"github.com/spf13/cobra"

	"github.com/okian/custseg/pkg/logger"
)

// SegmentOptions holds flags for the segment command.
type SegmentOptions struct {
	*RootOptions
	Clusters int
	Seed     int64
	DryRun   bool
}

// NewSegmentCommand creates the segment command.
func NewSegmentCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SegmentOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "segment",
		Short: "Cluster active customers into segments",
		Long: `Load active customers, derive recency/frequency/monetary features, standardize
them and run seeded k-means. Assignments and per-segment profiles are written to the
result tables unless --dry-run is given, and printed or exported in the chosen format.

Example:
  custseg segment --clusters 4 --format text
  CUSTSEG_DATABASE_URL=postgres://... custseg segment --seed 7 --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSegment(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Clusters, "clusters", "k", 0, "number of segments (overrides config clusters)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed (overrides config seed)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "do not write results to the database")

	return cmd
}

func runSegment(cmd *cobra.Command, opts *SegmentOptions) (err error) {
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

	if cmd.Flags().Changed("clusters") {
		e.cfg.Clusters = opts.Clusters
	}
	if cmd.Flags().Changed("seed") {
		e.cfg.Seed = opts.Seed
	}

	svc, err := e.newService(ctx, !opts.DryRun)
	if err != nil {
		return err
	}

	res, err := svc.Segment(ctx)
	if err != nil {
		return wrapRunError("segmentation failed", err)
	}
	e.log.Info(ctx, "segmentation finished",
		logger.String("run_id", res.RunID),
		logger.Int("customers", len(res.Assignments)),
		logger.Int("k", res.K),
	)
	return e.emit(cmd, "segmentation", res)
}
