package auth

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// LifecycleMetrics counts login and refresh outcomes.
type LifecycleMetrics interface {
	ObserveLogin(success bool)
	ObserveRefresh(success bool)
}

type noopMetrics struct{}

func (noopMetrics) ObserveLogin(bool)   {}
func (noopMetrics) ObserveRefresh(bool) {}

// Handler wires HTTP endpoints for the session lifecycle.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     func(http.Handler) http.Handler
	metrics   LifecycleMetrics
	validator *validator.Validate
}

// NewHandler constructs a Handler instance. guard authenticates the
// endpoints that require a live access token.
func NewHandler(logger *slog.Logger, service *Service, guard func(http.Handler) http.Handler) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		guard:     guard,
		metrics:   noopMetrics{},
		validator: validator.New(),
	}
}

// WithMetrics attaches outcome counters to login and refresh.
func (h *Handler) WithMetrics(metrics LifecycleMetrics) *Handler {
	if metrics != nil {
		h.metrics = metrics
	}
	return h
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/refresh", h.handleRefresh)

	r.Group(func(pr chi.Router) {
		pr.Use(h.guard)
		pr.Post("/logout", h.handleLogout)
		pr.Post("/revoke-all", h.handleRevokeAll)
		pr.Get("/me", h.handleMe)
	})
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Role      string `json:"role" validate:"omitempty"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionResponse struct {
	User             PublicUser `json:"user"`
	AccessToken      string     `json:"accessToken"`
	RefreshToken     string     `json:"refreshToken"`
	AccessExpiresAt  time.Time  `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time  `json:"refreshExpiresAt"`
}

type refreshResponse struct {
	AccessToken     string    `json:"accessToken"`
	AccessExpiresAt time.Time `json:"accessExpiresAt"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "request body is not valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	session, err := h.service.Register(r.Context(), RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	}, requestMeta(r))
	if err != nil {
		h.logger.Warn("register", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newSessionResponse(session))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "request body is not valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password, requestMeta(r))
	if err != nil {
		h.metrics.ObserveLogin(false)
		h.logger.Info("login rejected", slog.String("email", req.Email), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.metrics.ObserveLogin(true)
	httpx.JSON(w, http.StatusOK, newSessionResponse(session))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "request body is not valid JSON")
		return
	}

	accessToken, expiresAt, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.metrics.ObserveRefresh(false)
		h.logger.Info("refresh rejected", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.metrics.ObserveRefresh(true)
	httpx.JSON(w, http.StatusOK, refreshResponse{AccessToken: accessToken, AccessExpiresAt: expiresAt})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	var req refreshRequest
	_ = httpx.DecodeJSON(r, &req)

	if err := h.service.Logout(r.Context(), req.RefreshToken, identity.UserID, requestMeta(r)); err != nil {
		h.logger.Error("logout", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) handleRevokeAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	if err := h.service.RevokeAll(r.Context(), identity.UserID, requestMeta(r)); err != nil {
		h.logger.Error("revoke all", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	user, err := h.service.CurrentUser(r.Context(), identity.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user.Public())
}

func newSessionResponse(session Session) sessionResponse {
	return sessionResponse{
		User:             session.User.Public(),
		AccessToken:      session.Tokens.AccessToken,
		RefreshToken:     session.Tokens.RefreshToken,
		AccessExpiresAt:  session.Tokens.AccessExpiresAt,
		RefreshExpiresAt: session.Tokens.RefreshExpiresAt,
	}
}

func requestMeta(r *http.Request) RequestMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return RequestMeta{IP: ip, UserAgent: r.UserAgent()}
}
