package cli

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/custseg/internal/adapters/export"
	"github.com/okian/custseg/internal/adapters/mq/publisher"
	"github.com/okian/custseg/internal/adapters/repository"
	service "github.com/okian/custseg/internal/app"
	"github.com/okian/custseg/internal/config"
	"github.com/okian/custseg/internal/domain/features"
	"github.com/okian/custseg/internal/domain/segmentation"
	"github.com/okian/custseg/pkg/logger"
)

var timeNow = time.Now

// env is the wiring shared by every command: config, logger, store and optional publisher.
type env struct {
	cfg       *config.Config
	format    export.Format
	log       logger.Logger
	store     *repository.SQLStore
	publisher *publisher.Publisher
}

// setup loads configuration and opens the database.
// Callers must call close.
func setup(ctx context.Context, cmd *cobra.Command, opts *RootOptions) (*env, error) {
	cfg, err := config.Load(ctx, opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	out := opts.LogOutput
	if out == nil {
		out = cmd.ErrOrStderr()
	}
	if err := logger.Init(logger.WithOutput(out), logger.WithFormat(cfg.LogFormat)); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to initialize logging", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid log level", err)
	}
	log := logger.Named("cli")

	rawFormat := cfg.ExportFormat
	if opts.Format != "" {
		rawFormat = opts.Format
	}
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid format", err)
	}

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, NewExitError(ExitCommandError, "database_url is required (set CUSTSEG_DATABASE_URL)")
	}

	storeOpts := []repository.Option{repository.WithLogger(logger.Named("repository"))}
	if cfg.DatabaseSchema != "" {
		storeOpts = append(storeOpts, repository.WithSchema(cfg.DatabaseSchema))
	}
	store, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, cfg.ConnectTimeout(), storeOpts...)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "failed to open database", err)
	}

	e := &env{cfg: cfg, format: format, log: log, store: store}
	if cfg.AMQPURL != "" {
		pub, err := publisher.Dial(cfg.AMQPURL,
			publisher.WithQueue(cfg.AMQPQueue),
			publisher.WithLogger(logger.Named("publisher")),
		)
		if err != nil {
			_ = store.Close()
			return nil, WrapExitError(ExitFailure, "failed to connect to broker", err)
		}
		e.publisher = pub
	}

	log.Debug(ctx, "environment ready",
		logger.String("driver", cfg.DatabaseDriver),
		logger.Bool("publisher", e.publisher != nil),
		logger.String("format", string(format)),
	)
	return e, nil
}

// newService builds a Service from the loaded configuration.
// With persist false results are only written to the output.
func (e *env) newService(ctx context.Context, persist bool) (*service.Service, error) {
	ref, err := e.cfg.Reference()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid reference_time", err)
	}
	policy, err := features.ParseRecencyPolicy(e.cfg.RecencyPolicy)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid recency_policy", err)
	}

	opts := []service.Option{
		service.WithSource(e.store),
		service.WithLogger(logger.Named("service")),
		service.WithPipelineOptions(
			segmentation.WithClusters(e.cfg.Clusters),
			segmentation.WithSeed(e.cfg.Seed),
			segmentation.WithMaxIterations(e.cfg.MaxIterations),
			segmentation.WithTolerance(e.cfg.Tolerance),
			segmentation.WithInitRuns(e.cfg.InitRuns),
			segmentation.WithReferenceTime(ref),
			segmentation.WithRecencyPolicy(policy),
			segmentation.WithLogger(logger.Named("pipeline")),
		),
		service.WithTopCustomers(e.cfg.TopCustomers),
		service.WithTopProducts(e.cfg.TopProducts),
		service.WithDenylist(e.cfg.ProductDenylist...),
		service.WithWorkerCount(e.cfg.WorkerCount),
		service.WithQueueSize(e.cfg.QueueSize),
		service.WithDedupeSize(e.cfg.DedupeSize),
		service.WithJobTimeout(e.cfg.JobTimeout()),
	}
	if persist {
		if err := e.store.EnsureReportingSchema(ctx); err != nil {
			return nil, WrapExitError(ExitFailure, "failed to prepare result tables", err)
		}
		opts = append(opts, service.WithSink(e.store))
	}
	if e.publisher != nil {
		opts = append(opts, service.WithPublisher(e.publisher))
	}
	return service.New(opts...), nil
}

// emit writes v to the export directory when configured, otherwise to the command output.
func (e *env) emit(cmd *cobra.Command, name string, v any) error {
	if e.cfg.ExportDir == "" {
		if err := export.Encode(cmd.OutOrStdout(), e.format, v); err != nil {
			return WrapExitError(ExitFailure, "failed to write output", err)
		}
		return nil
	}
	path, err := export.WriteFile(e.cfg.ExportDir, name, e.format, v, timeNow())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to export", err)
	}
	e.log.Info(cmd.Context(), "exported", logger.String("path", path))
	_, _ = cmd.OutOrStdout().Write([]byte(path + "\n"))
	return nil
}

func (e *env) close() error {
	var errs []error
	if e.publisher != nil {
		errs = append(errs, e.publisher.Close())
	}
	errs = append(errs, e.store.Close(), logger.Sync())
	return errors.Join(errs...)
}
