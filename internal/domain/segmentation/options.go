package segmentation

import (
	"time"

	"github.com/okian/custseg/internal/domain/features"
	"github.com/okian/custseg/pkg/logger"
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithClusters sets the number of segments k.
func WithClusters(k int) Option {
	return func(p *Pipeline) {
		p.k = k
	}
}

// WithSeed sets the clustering seed.
func WithSeed(seed int64) Option {
	return func(p *Pipeline) {
		p.seed = seed
	}
}

// WithMaxIterations bounds Lloyd iterations per initialization.
func WithMaxIterations(n int) Option {
	return func(p *Pipeline) {
		p.maxIter = n
	}
}

// WithTolerance sets the relative convergence tolerance.
func WithTolerance(tol float64) Option {
	return func(p *Pipeline) {
		p.tol = tol
	}
}

// WithInitRuns sets the number of seeded initializations.
func WithInitRuns(n int) Option {
	return func(p *Pipeline) {
		p.initRuns = n
	}
}

// WithReferenceTime fixes "now" for recency. Zero means the time of each run.
func WithReferenceTime(t time.Time) Option {
	return func(p *Pipeline) {
		p.reference = t
	}
}

// WithRecencyPolicy sets how future updated_at values are handled.
func WithRecencyPolicy(policy features.RecencyPolicy) Option {
	return func(p *Pipeline) {
		p.policy = policy
	}
}

// WithRunIDGenerator replaces the UUIDv7 run id source.
func WithRunIDGenerator(gen func() string) Option {
	return func(p *Pipeline) {
		if gen != nil {
			p.newRunID = gen
		}
	}
}

// WithLogger sets the run logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}
