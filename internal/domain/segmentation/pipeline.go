// Package segmentation runs the customer segmentation pipeline: feature engineering,
// standardization, clustering and cluster profiling.
package segmentation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/okian/custseg/internal/domain/cluster"
	"github.com/okian/custseg/internal/domain/features"
	"github.com/okian/custseg/internal/domain/model"
	"github.com/okian/custseg/internal/domain/normalize"
	"github.com/okian/custseg/internal/domain/summary"
	"github.com/okian/custseg/pkg/logger"
	"github.com/okian/custseg/pkg/metrics"
)

// Failure kinds reported to metrics.
const (
	kindConfiguration = "configuration"
	kindDataQuality   = "data_quality"
	kindInternal      = "internal"
)

// Pipeline holds the run configuration. It keeps no state between runs and can be shared by
// concurrent callers.
type Pipeline struct {
	k         int
	seed      int64
	maxIter   int
	tol       float64
	initRuns  int
	reference time.Time
	policy    features.RecencyPolicy
	newRunID  func() string
	logger    logger.Logger
}

// New creates a Pipeline with k=5 and seed=42.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		k:        cluster.DefaultClusters,
		seed:     cluster.DefaultSeed,
		maxIter:  cluster.DefaultMaxIterations,
		tol:      cluster.DefaultTolerance,
		initRuns: cluster.DefaultInitRuns,
		policy:   features.RecencyClamp,
		newRunID: func() string { return uuid.Must(uuid.NewV7()).String() },
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run segments records, which must already exclude deleted customers. It returns a complete
// result bundle or an error; configuration is checked before any record is touched.
func (p *Pipeline) Run(ctx context.Context, records []model.CustomerRecord) (*model.Result, error) {
	start := time.Now()
	runID := p.newRunID()
	log := p.logger.With(logger.String("run_id", runID))

	res, err := p.run(ctx, log, runID, records)
	if err != nil {
		kind := failureKind(err)
		metrics.RecordPipelineFailure(kind)
		log.Error(ctx, "segmentation failed", logger.String("kind", kind), logger.Error(err))
		return nil, err
	}

	elapsed := time.Since(start)
	metrics.RecordPipelineRun(float64(elapsed.Milliseconds()), len(records))
	log.Info(ctx, "segmentation completed",
		logger.Int("customers", len(records)),
		logger.Int("k", res.K),
		logger.Float64("inertia", res.Inertia),
		logger.Int("iterations", res.Iterations),
		logger.Duration("elapsed", elapsed),
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, log logger.Logger, runID string, records []model.CustomerRecord) (*model.Result, error) {
	km := cluster.New(
		cluster.WithClusters(p.k),
		cluster.WithSeed(p.seed),
		cluster.WithMaxIterations(p.maxIter),
		cluster.WithTolerance(p.tol),
		cluster.WithInitRuns(p.initRuns),
	)
	if err := km.Validate(len(records)); err != nil {
		return nil, err
	}

	ref := p.reference
	if ref.IsZero() {
		ref = time.Now()
	}
	ref = ref.UTC()

	eng := features.New(
		features.WithReferenceTime(ref),
		features.WithRecencyPolicy(p.policy),
		features.WithLogger(log),
	)
	vectors, sanitized, err := eng.Build(ctx, records)
	if err != nil {
		return nil, err
	}

	scaled := normalize.Standardize(vectors)
	fit, err := km.Fit(scaled)
	if err != nil {
		return nil, err
	}

	profiles, err := summary.Summarize(vectors, fit.Labels, p.k)
	if err != nil {
		return nil, err
	}

	metrics.RecordClustering(fit.Inertia, fit.Iterations)
	metrics.UpdateClusterSizes(fit.Sizes())
	log.Debug(ctx, "clusters fitted", logger.Any("sizes", fit.Sizes()))

	return &model.Result{
		RunID:         runID,
		K:             p.k,
		Seed:          p.seed,
		ReferenceTime: ref,
		Assignments:   summary.Assignments(vectors, fit.Labels),
		Profiles:      profiles,
		Sanitized:     sanitized,
		Inertia:       fit.Inertia,
		Iterations:    fit.Iterations,
	}, nil
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, model.ErrConfiguration):
		return kindConfiguration
	case errors.Is(err, model.ErrDataQuality):
		return kindDataQuality
	default:
		return kindInternal
	}
}
