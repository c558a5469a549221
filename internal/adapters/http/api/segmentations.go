package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/custseg/internal/app"
	"github.com/okian/custseg/internal/domain/model"
	"github.com/okian/custseg/pkg/logger"
)

// SegmentationHandler serves run submission and status.
type SegmentationHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewSegmentationHandler creates a new segmentation handler.
func NewSegmentationHandler(deps Dependencies, l logger.Logger) *SegmentationHandler {
	return &SegmentationHandler{deps: deps, logger: l}
}

// HandleSubmit handles POST /segmentations.
// A new run answers 202; a repeated Idempotency-Key answers 200 with the original run.
func (h *SegmentationHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if len(key) > maxRequestKeyLen {
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Errorf("%w: %s longer than %d bytes", ErrBadRequest, IdempotencyHeader, maxRequestKeyLen))
		return
	}

	status, dup, err := h.deps.Submit(r.Context(), key)
	switch {
	case errors.Is(err, service.ErrBackpressure):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "backpressure", fmt.Errorf("%w: %w", ErrBackpressure, err))
		return
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", fmt.Errorf("%w: %w", ErrUnavailable, err))
		return
	case err != nil:
		h.logger.Error(r.Context(), "submit segmentation", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	w.Header().Set("Location", "/segmentations/"+status.ID)
	code := http.StatusAccepted
	if dup {
		code = http.StatusOK
	}
	writeJSON(w, code, submitResponse{RunStatus: status, Duplicate: dup})
}

// HandleStatus handles GET /segmentations/{id}.
func (h *SegmentationHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, err := h.deps.Status(id)
	if errors.Is(err, service.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ReportHandler serves the ranking report.
type ReportHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(deps Dependencies, l logger.Logger) *ReportHandler {
	return &ReportHandler{deps: deps, logger: l}
}

// HandleReport handles GET /reports.
func (h *ReportHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.deps.Report(r.Context())
	switch {
	case errors.Is(err, model.ErrDataQuality):
		writeError(w, http.StatusUnprocessableEntity, "data_quality", err)
		return
	case err != nil:
		h.logger.Error(r.Context(), "build report", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
