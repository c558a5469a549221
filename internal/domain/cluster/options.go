package cluster

import "github.com/okian/custseg/internal/domain/model"

// Option applies a configuration option to KMeans.
type Option func(*KMeans)

// WithClusters sets k. Range checks happen in Validate.
func WithClusters(k int) Option {
	return func(km *KMeans) {
		km.k = k
	}
}

// WithSeed sets the seed of the initialization random source.
func WithSeed(seed int64) Option {
	return func(km *KMeans) {
		km.seed = seed
	}
}

// WithMaxIterations bounds the Lloyd iterations per initialization.
func WithMaxIterations(n int) Option {
	return func(km *KMeans) {
		km.maxIter = n
	}
}

// WithTolerance sets the convergence threshold relative to the mean feature variance.
func WithTolerance(tol float64) Option {
	return func(km *KMeans) {
		km.tol = tol
	}
}

// WithInitRuns sets how many seeded initializations are tried.
func WithInitRuns(n int) Option {
	return func(km *KMeans) {
		km.initRuns = n
	}
}

func configError(field, format string, args ...any) error {
	return model.NewConfigurationError(field, format, args...)
}
