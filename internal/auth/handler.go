package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lyceum-erp/lyceum-erp/internal/authz"
	"github.com/lyceum-erp/lyceum-erp/internal/platform/httpx"
	"github.com/lyceum-erp/lyceum-erp/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     *authz.Service
	gate      authz.Gate
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authzService *authz.Service, gate authz.Gate) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		authz:     authzService,
		gate:      gate,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(authz.Requirement{}))
		r.Get("/me", h.handleMe)
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type meResponse struct {
	User        userResponse `json:"user"`
	Permissions []string     `json:"permissions"`
}

// handleLogin handles POST /api/auth/login
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, firstValidationError(err))
		return
	}
	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Fail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := h.service.IssueToken(user)
	if err != nil {
		h.logger.Error("auth: issue token", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, http.StatusOK, loginResponse{
		Token: token,
		User:  userResponse{ID: user.ID, Email: user.Email, FullName: user.FullName},
	})
}

// handleMe handles GET /api/auth/me
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Unauthorized(w)
		return
	}
	user, err := h.service.FindUser(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Fail(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("auth: load profile", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	// Routes resolved by the gate already carry the effective set; only load
	// it here when this request skipped resolution.
	var permissions []string
	if set, ok := authz.PermissionsFromContext(r.Context()); ok {
		permissions = set.Names()
	} else {
		permissions, err = h.authz.EffectivePermissions(r.Context(), principal.UserID)
		if err != nil {
			h.logger.Error("auth: load permissions", slog.Any("error", err))
			httpx.Fail(w, http.StatusInternalServerError, "internal error")
			return
		}
	}
	httpx.OK(w, http.StatusOK, meResponse{
		User:        userResponse{ID: user.ID, Email: user.Email, FullName: user.FullName},
		Permissions: permissions,
	})
}

func firstValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return fmt.Sprintf("%s failed %s validation", ve[0].Field(), ve[0].Tag())
	}
	return "invalid payload"
}
