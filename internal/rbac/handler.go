package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes read-only RBAC endpoints: the permission catalog and the
// grant set per role.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers rbac routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("rbac.read"))
		r.Get("/permissions", h.listPermissions)
		r.Get("/roles", h.listRoleGrants)
	})
}

type permissionResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))
	paging := shared.NewPagination(page, perPage, len(perms))
	start, end := paging.Bounds()

	out := make([]permissionResponse, 0, end-start)
	for _, perm := range perms[start:end] {
		out = append(out, permissionResponse{ID: perm.ID, Name: perm.Name, Category: perm.Category, Action: perm.Action})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"permissions": out,
		"pagination": map[string]int{
			"page":       paging.Page,
			"perPage":    paging.PerPage,
			"total":      paging.Total,
			"totalPages": paging.TotalPages,
		},
	})
}

type roleGrantsResponse struct {
	Role        Role     `json:"role"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) listRoleGrants(w http.ResponseWriter, r *http.Request) {
	out := make([]roleGrantsResponse, 0, len(AllRoles))
	for _, role := range AllRoles {
		names, err := h.service.EffectivePermissions(r.Context(), role)
		if err != nil {
			h.logger.Error("role grants", slog.String("role", string(role)), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		if names == nil {
			names = []string{}
		}
		out = append(out, roleGrantsResponse{Role: role, Permissions: names})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}
