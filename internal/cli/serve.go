package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/custseg/internal/adapters/http/api"
	"github.com/okian/custseg/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the segmentation HTTP API",
		Long: `Start the worker pool and the HTTP API. Runs submitted with POST /segmentations
execute asynchronously; SIGINT or SIGTERM drains queued runs and stops the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config addr)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) (err error) {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := setup(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.close(); cerr != nil && err == nil {
			err = WrapExitError(ExitFailure, "failed to close resources", cerr)
		}
	}()
	if opts.Addr != "" {
		e.cfg.Addr = opts.Addr
	}

	svc, err := e.newService(ctx, true)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to start service", err)
	}

	srv := &http.Server{
		Addr:              e.cfg.Addr,
		Handler:           api.NewServer(svc, api.WithLogger(logger.Named("http"))).Router(),
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		e.log.Info(ctx, "starting HTTP server", logger.String("addr", e.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		e.log.Info(ctx, "shutting down server")
	case err := <-serveErr:
		_ = svc.Stop(context.WithoutCancel(ctx))
		return WrapExitError(ExitFailure, "HTTP server failed", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		e.log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		e.log.Error(shutdownCtx, "service stop failed", logger.Error(err))
	}
	e.log.Info(shutdownCtx, "server stopped")
	return nil
}
