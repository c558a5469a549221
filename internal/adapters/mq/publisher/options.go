package publisher

import "github.com/okian/custseg/pkg/logger"

// Option applies a configuration option to the Publisher.
type Option func(*Publisher)

// WithQueue sets the durable queue results are published to.
func WithQueue(name string) Option {
	return func(p *Publisher) {
		if name != "" {
			p.queue = name
		}
	}
}

// WithLogger sets the publisher logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}
