// Package audithttp serves the administrator audit log endpoints.
package audithttp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/propertyhub/propertyhub/internal/audit"
	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/shared"
)

// LogService is the audit read API used by the handler.
type LogService interface {
	List(ctx context.Context, f audit.ListFilters) ([]audit.Record, shared.Pagination, error)
	Export(ctx context.Context, f audit.ListFilters) ([]audit.Record, error)
}

// Handler serves audit log listing and export.
type Handler struct {
	logger  *slog.Logger
	service LogService
}

// NewHandler membuat handler audit log.
func NewHandler(logger *slog.Logger, service LogService) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filters, err := audit.ParseListFilters(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	rows, paging, err := h.service.List(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Page(w, rows, paging)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := audit.ParseListFilters(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	csvBytes, err := audit.WriteCSV(rows)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-logs.csv\"")
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}
