package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler exposes the audit trail as a read-only JSON endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   func(http.Handler) http.Handler
}

// NewHandler builds a Handler. The guard middleware is expected to enforce
// the audit.read permission.
func NewHandler(logger *slog.Logger, service *Service, guard func(http.Handler) http.Handler) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers audit routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.guard != nil {
			r.Use(h.guard)
		}
		r.Get("/", h.timeline)
	})
}

type eventResponse struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"userId"`
	Action     Action    `json:"action"`
	Entity     string    `json:"entity"`
	IP         string    `json:"ip,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters := TimelineFilters{Action: query.Get("action")}
	if raw := query.Get("page"); raw != "" {
		filters.Page, _ = strconv.Atoi(raw)
	}
	if raw := query.Get("pageSize"); raw != "" {
		filters.PageSize, _ = strconv.Atoi(raw)
	}
	if raw := query.Get("userId"); raw != "" {
		filters.UserID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if raw := query.Get("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.From = t
		}
	}
	if raw := query.Get("to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.To = t
		}
	}

	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	rows := make([]eventResponse, 0, len(result.Rows))
	for _, event := range result.Rows {
		rows = append(rows, eventResponse{
			ID:         event.ID,
			UserID:     event.UserID,
			Action:     event.Action,
			Entity:     event.Entity,
			IP:         event.IP,
			UserAgent:  event.UserAgent,
			OccurredAt: event.OccurredAt,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"events": rows,
		"paging": map[string]any{
			"page":     result.Paging.Page,
			"pageSize": result.Paging.PageSize,
			"hasNext":  result.Paging.HasNext,
		},
	})
}
