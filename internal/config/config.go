// Package config defines process configuration and its loading from defaults, a YAML file,
// a dotenv file and the environment.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabaseDriver is the database/sql driver: postgres or sqlite3.
	DatabaseDriver string `koanf:"database_driver"`

	// DatabaseURL is the driver specific data source name.
	DatabaseURL string `koanf:"database_url"`

	// DatabaseSchema qualifies table names. Empty means the driver default.
	DatabaseSchema string `koanf:"database_schema"`

	// ConnectTimeoutMS bounds the initial database ping.
	ConnectTimeoutMS int `koanf:"connect_timeout_ms"`

	// Segmentation parameters.
	Clusters      int     `koanf:"clusters"`
	Seed          int64   `koanf:"seed"`
	MaxIterations int     `koanf:"max_iterations"`
	Tolerance     float64 `koanf:"tolerance"`
	InitRuns      int     `koanf:"init_runs"`

	// ReferenceTime fixes "now" for recency as RFC 3339. Empty means the time of each run.
	ReferenceTime string `koanf:"reference_time"`

	// RecencyPolicy handles updated_at values in the future: clamp or reject.
	RecencyPolicy string `koanf:"recency_policy"`

	// Report sizes and the product names excluded from best sellers.
	TopCustomers    int      `koanf:"top_customers"`
	TopProducts     int      `koanf:"top_products"`
	ProductDenylist []string `koanf:"product_denylist"`

	// Asynchronous runs.
	QueueSize    int `koanf:"queue_size"`
	WorkerCount  int `koanf:"worker_count"`
	DedupeSize   int `koanf:"dedupe_size"`
	JobTimeoutMS int `koanf:"job_timeout_ms"`

	// AMQPURL enables result publishing when set.
	AMQPURL   string `koanf:"amqp_url"`
	AMQPQueue string `koanf:"amqp_queue"`

	// ExportDir receives result files from the CLI when set.
	ExportDir    string `koanf:"export_dir"`
	ExportFormat string `koanf:"export_format"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		DatabaseDriver:   "postgres",
		ConnectTimeoutMS: 5000,
		Clusters:         5,
		Seed:             42,
		MaxIterations:    300,
		Tolerance:        1e-4,
		InitRuns:         10,
		RecencyPolicy:    "clamp",
		TopCustomers:     10,
		TopProducts:      5,
		ProductDenylist:  []string{"COD-Fees"},
		QueueSize:        16,
		WorkerCount:      2,
		DedupeSize:       1000,
		JobTimeoutMS:     300_000,
		AMQPQueue:        "segmentation_results",
		ExportFormat:     "json",
	}
}

// ConnectTimeout returns ConnectTimeoutMS as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMS) * time.Millisecond
}

// JobTimeout returns JobTimeoutMS as a duration.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.JobTimeoutMS) * time.Millisecond
}

// Reference parses ReferenceTime. The zero time means "now".
func (c *Config) Reference() (time.Time, error) {
	if strings.TrimSpace(c.ReferenceTime) == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, strings.TrimSpace(c.ReferenceTime))
}

// Validate checks every field and reports the first problem wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	check := func(ok bool, format string, args ...any) error {
		if ok {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	_, refErr := c.Reference()
	checks := []error{
		check(c.Addr != "", "addr must not be empty"),
		check(slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.LogLevel)),
			"log_level must be debug, info, warn or error, got %q", c.LogLevel),
		check(slices.Contains([]string{"text", "json"}, strings.ToLower(c.LogFormat)),
			"log_format must be text or json, got %q", c.LogFormat),
		check(c.DatabaseDriver == "postgres" || c.DatabaseDriver == "sqlite3",
			"database_driver must be postgres or sqlite3, got %q", c.DatabaseDriver),
		check(c.ConnectTimeoutMS >= 0, "connect_timeout_ms must not be negative"),
		check(c.Clusters >= 1, "clusters must be at least 1, got %d", c.Clusters),
		check(c.MaxIterations >= 1, "max_iterations must be at least 1, got %d", c.MaxIterations),
		check(c.Tolerance >= 0, "tolerance must not be negative, got %v", c.Tolerance),
		check(c.InitRuns >= 1, "init_runs must be at least 1, got %d", c.InitRuns),
		check(refErr == nil, "reference_time must be RFC 3339, got %q", c.ReferenceTime),
		check(slices.Contains([]string{"clamp", "reject"}, strings.ToLower(c.RecencyPolicy)),
			"recency_policy must be clamp or reject, got %q", c.RecencyPolicy),
		check(c.TopCustomers >= 1, "top_customers must be at least 1, got %d", c.TopCustomers),
		check(c.TopProducts >= 1, "top_products must be at least 1, got %d", c.TopProducts),
		check(c.QueueSize >= 1, "queue_size must be at least 1, got %d", c.QueueSize),
		check(c.WorkerCount >= 1, "worker_count must be at least 1, got %d", c.WorkerCount),
		check(c.DedupeSize >= 1, "dedupe_size must be at least 1, got %d", c.DedupeSize),
		check(c.JobTimeoutMS >= 0, "job_timeout_ms must not be negative"),
		check(slices.Contains([]string{"json", "yaml", "yml", "text", "table"}, strings.ToLower(c.ExportFormat)),
			"export_format must be json, yaml or text, got %q", c.ExportFormat),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}
