package repository

import "github.com/okian/custseg/pkg/logger"

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithSchema qualifies every table with schema. An empty schema leaves names unqualified.
func WithSchema(schema string) Option {
	return func(s *SQLStore) {
		s.schema = schema
		s.schemaSet = true
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLStore) {
		if l != nil {
			s.logger = l
		}
	}
}
