// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/custseg/internal/adapters/http/swagger"
	"github.com/okian/custseg/internal/domain/model"
	"github.com/okian/custseg/pkg/logger"
)

// IdempotencyHeader carries the client request key of POST /segmentations.
const IdempotencyHeader = "Idempotency-Key"

// maxRequestKeyLen bounds the accepted Idempotency-Key length.
const maxRequestKeyLen = 128

// Dependencies required by HTTP handlers.
type Dependencies interface {
	StatsProvider

	// Submit queues a segmentation run. duplicate is true when requestKey was already claimed.
	Submit(ctx context.Context, requestKey string) (status model.RunStatus, duplicate bool, err error)
	// Status returns the progress of a submitted run.
	Status(runID string) (model.RunStatus, error)
	// Report builds the ranking report synchronously.
	Report(ctx context.Context) (*model.Report, error)
	// Ready reports whether the worker pool is accepting runs.
	Ready() bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the segmentation API.
type Server struct {
	logger              logger.Logger
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	segmentationHandler *SegmentationHandler
	reportHandler       *ReportHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler(deps)
	s.statsHandler = NewStatsHandler(deps)
	s.segmentationHandler = NewSegmentationHandler(deps, s.logger)
	s.reportHandler = NewReportHandler(deps, s.logger)
	return s
}

// Router returns a chi router with every route registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.With(Metrics("healthz")).Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/metrics", s.healthHandler.HandleMetrics)
	r.With(Metrics("stats")).Get("/stats", s.statsHandler.HandleStats)

	r.Route("/segmentations", func(r chi.Router) {
		r.With(Metrics("segmentations_submit")).Post("/", s.segmentationHandler.HandleSubmit)
		r.With(Metrics("segmentations_status")).Get("/{id}", s.segmentationHandler.HandleStatus)
	})
	r.With(Metrics("reports")).Get("/reports", s.reportHandler.HandleReport)

	swagger.Register(r)
}

type submitResponse struct {
	model.RunStatus
	Duplicate bool `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Code: "internal_error", Message: err.Error()})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
