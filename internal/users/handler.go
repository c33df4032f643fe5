package users

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lyceum-erp/lyceum-erp/internal/authz"
	"github.com/lyceum-erp/lyceum-erp/internal/platform/httpx"
	"github.com/lyceum-erp/lyceum-erp/internal/shared"
)

// Handler manages user HTTP endpoints, including the per-user override
// surface of the authorization core.
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

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	selfID := authz.SelfIDFromURLParam("userID")

	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAny(shared.PermUsersView, shared.PermUsersEdit))
		r.Get("/", h.list)
	})

	// Self access routes: users reach their own record without holding a
	// permission.
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(authz.Requirement{
			Permissions: []string{shared.PermUsersView, shared.PermUsersEdit},
			AllowSelf:   true,
			SelfID:      selfID,
		}))
		r.Get("/{userID}", h.get)
		r.Get("/{userID}/permissions", h.permissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(authz.Requirement{
			Permissions: []string{shared.PermUsersEdit},
			RequireAll:  true,
			AllowSelf:   true,
			SelfID:      selfID,
		}))
		r.Put("/{userID}", h.update)
	})

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAll(shared.PermUsersEdit))
		r.Put("/{userID}/role", h.assignRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAll(shared.PermPermissionsEdit))
		r.Put("/{userID}/permissions/{permissionID}", h.setOverride)
		r.Delete("/{userID}/permissions/{permissionID}", h.clearOverride)
	})
}

// list handles GET /api/users
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))

	list, pg, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, ListResponse{Users: toResponses(list), Pagination: pg})
}

// get handles GET /api/users/{userID}
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toResponse(u))
}

// update handles PUT /api/users/{userID}
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, firstValidationError(err))
		return
	}
	u, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toResponse(u))
}

// assignRole handles PUT /api/users/{userID}/role
func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req AssignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.service.AssignRole(r.Context(), id, req.RoleID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "role assigned"})
}

// permissions handles GET /api/users/{userID}/permissions
func (h *Handler) permissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.Get(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	effective, err := h.authz.EffectivePermissions(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	overrides, err := h.authz.Overrides(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, PermissionsResponse{Effective: effective, Overrides: overrides})
}

// setOverride handles PUT /api/users/{userID}/permissions/{permissionID}
func (h *Handler) setOverride(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	permissionID, ok := h.pathID(w, r, "permissionID", "invalid permission id")
	if !ok {
		return
	}
	var req OverrideRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, firstValidationError(err))
		return
	}
	if err := h.authz.SetOverride(r.Context(), userID, permissionID, *req.Granted); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "override recorded"})
}

// clearOverride handles DELETE /api/users/{userID}/permissions/{permissionID}
func (h *Handler) clearOverride(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	permissionID, ok := h.pathID(w, r, "permissionID", "invalid permission id")
	if !ok {
		return
	}
	if err := h.authz.ClearOverride(r.Context(), userID, permissionID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "override cleared"})
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	return h.pathID(w, r, "userID", "invalid user id")
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param, message string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, message)
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, authz.ErrUserNotFound):
		httpx.Fail(w, http.StatusNotFound, "user not found")
	case errors.Is(err, authz.ErrPermissionNotFound):
		httpx.Fail(w, http.StatusNotFound, "permission not found")
	case errors.Is(err, authz.ErrOverrideNotFound):
		httpx.Fail(w, http.StatusNotFound, "override not found")
	case errors.Is(err, ErrRoleNotFound):
		httpx.Fail(w, http.StatusNotFound, "role not found")
	case errors.Is(err, ErrEmailTaken):
		httpx.Fail(w, http.StatusConflict, "email already registered")
	case errors.Is(err, ErrEmptyUpdate):
		httpx.Fail(w, http.StatusBadRequest, "update payload is empty")
	default:
		h.logger.Error("users: request failed", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}

func firstValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return fmt.Sprintf("%s failed %s validation", ve[0].Field(), ve[0].Tag())
	}
	return "invalid payload"
}
