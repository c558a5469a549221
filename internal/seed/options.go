package seed

import "time"

// Option configures a Generator.
type Option func(*Generator)

// WithCustomers sets how many customers are generated. Values below 1 are ignored.
func WithCustomers(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.customers = n
		}
	}
}

// WithSeed sets the random seed.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// WithReferenceTime anchors generated timestamps. Zero keeps the current time.
func WithReferenceTime(t time.Time) Option {
	return func(g *Generator) {
		if !t.IsZero() {
			g.now = t.UTC()
		}
	}
}
