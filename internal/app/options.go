package service

import (
	"time"

	"github.com/okian/custseg/internal/domain/segmentation"
	"github.com/okian/custseg/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource sets where customers and orders are read from.
func WithSource(src CustomerSource) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithSink sets where results and reports are stored. Without a sink nothing is persisted.
func WithSink(sink ResultSink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

// WithPublisher announces every successful segmentation.
func WithPublisher(p ResultPublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithPipelineOptions configures every pipeline the service runs.
func WithPipelineOptions(opts ...segmentation.Option) Option {
	return func(s *Service) {
		s.pipelineOpts = append(s.pipelineOpts, opts...)
	}
}

// WithTopCustomers sets the size of the customer leaderboards.
func WithTopCustomers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topCustomers = n
		}
	}
}

// WithTopProducts sets the size of the best sellers report.
func WithTopProducts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topProducts = n
		}
	}
}

// WithDenylist replaces the product names excluded from best sellers.
func WithDenylist(names ...string) Option {
	return func(s *Service) {
		s.denylist = names
	}
}

// WithWorkerCount sets the number of concurrent segmentation runs.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets how many submitted runs may wait for a worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many idempotency keys, and finished runs, are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithJobTimeout bounds a single asynchronous run.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.jobTimeout = d
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
