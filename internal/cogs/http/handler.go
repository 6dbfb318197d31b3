// Package cogshttp exposes the COGS report over HTTP.
package cogshttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mccmmj/cafe-web-sub004/internal/cogs"
	"github.com/mccmmj/cafe-web-sub004/internal/platform/httpx"
)

// ReportService defines the report contract used by the handler.
type ReportService interface {
	BuildReport(ctx context.Context, req cogs.ReportRequest) (cogs.Report, error)
	CachedReport(ctx context.Context, req cogs.ReportRequest) (cogs.Report, error)
}

// Handler wires report endpoints.
type Handler struct {
	logger    *slog.Logger
	service   ReportService
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service ReportService) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/api/reports", func(r chi.Router) {
		r.Get("/cogs", h.getCOGSReport)
	})
}

type reportQuery struct {
	StartAt string `validate:"required"`
	EndAt   string `validate:"required"`
}

func (h *Handler) getCOGSReport(w http.ResponseWriter, r *http.Request) {
	query := reportQuery{
		StartAt: r.URL.Query().Get("start_at"),
		EndAt:   r.URL.Query().Get("end_at"),
	}
	if err := h.validator.Struct(query); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start_at and end_at are required")
		return
	}
	start, err := time.Parse(time.RFC3339, query.StartAt)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start_at must be an RFC3339 instant")
		return
	}
	end, err := time.Parse(time.RFC3339, query.EndAt)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end_at must be an RFC3339 instant")
		return
	}

	req := cogs.ReportRequest{
		StartAt:            start,
		EndAt:              end,
		IncludeTheoretical: r.URL.Query().Get("include_theoretical") != "false",
	}

	report, err := h.service.CachedReport(r.Context(), req)
	if err != nil {
		if errors.Is(err, cogs.ErrInvalidRange) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("build cogs report", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
