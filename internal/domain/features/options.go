package features

import (
	"time"

	"github.com/okian/custseg/pkg/logger"
)

// Option applies a configuration option to the Engineer.
type Option func(*Engineer)

// WithReferenceTime fixes the "now" recency is measured against.
func WithReferenceTime(t time.Time) Option {
	return func(e *Engineer) {
		e.reference = t
	}
}

// WithRecencyPolicy sets how future updated_at values are handled.
func WithRecencyPolicy(p RecencyPolicy) Option {
	return func(e *Engineer) {
		e.policy = p
	}
}

// WithLogger sets the logger used for sanitization warnings.
func WithLogger(l logger.Logger) Option {
	return func(e *Engineer) {
		if l != nil {
			e.logger = l
		}
	}
}
