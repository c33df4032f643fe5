package roles

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

// Handler manages role HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gate      authz.Gate
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gate authz.Gate) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		gate:      gate,
		validator: validator.New(),
	}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	// View routes
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAny(shared.PermRolesView, shared.PermRolesEdit))
		r.Get("/", h.list)
		r.Get("/{roleID}", h.get)
	})

	// Edit routes
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAll(shared.PermRolesEdit))
		r.Post("/", h.create)
		r.Put("/{roleID}", h.update)
		r.Delete("/{roleID}", h.delete)
		r.Put("/{roleID}/permissions", h.syncPermissions)
		r.Post("/{roleID}/permissions/{permissionID}", h.addPermission)
		r.Delete("/{roleID}/permissions/{permissionID}", h.removePermission)
	})
}

// list handles GET /api/roles
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toResponses(list))
}

// get handles GET /api/roles/{roleID}
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	role, perms, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toResponse(role, perms))
}

// create handles POST /api/roles
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, firstValidationError(err))
		return
	}
	role, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, toResponse(role, nil))
}

// update handles PUT /api/roles/{roleID}
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
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
	role, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toResponse(role, nil))
}

// delete handles DELETE /api/roles/{roleID}
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "role deleted"})
}

// syncPermissions handles PUT /api/roles/{roleID}/permissions
func (h *Handler) syncPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	var req SyncPermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, firstValidationError(err))
		return
	}
	if err := h.service.SyncPermissions(r.Context(), id, *req.PermissionIDs); err != nil {
		h.respondError(w, err)
		return
	}
	perms, err := h.service.Permissions(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, perms)
}

// addPermission handles POST /api/roles/{roleID}/permissions/{permissionID}
func (h *Handler) addPermission(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.roleID(w, r)
	if !ok {
		return
	}
	permissionID, ok := h.pathID(w, r, "permissionID", "invalid permission id")
	if !ok {
		return
	}
	if err := h.service.AddPermission(r.Context(), roleID, permissionID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "permission attached"})
}

// removePermission handles DELETE /api/roles/{roleID}/permissions/{permissionID}
func (h *Handler) removePermission(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.roleID(w, r)
	if !ok {
		return
	}
	permissionID, ok := h.pathID(w, r, "permissionID", "invalid permission id")
	if !ok {
		return
	}
	if err := h.service.RemovePermission(r.Context(), roleID, permissionID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "permission detached"})
}

func (h *Handler) roleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	return h.pathID(w, r, "roleID", "invalid role id")
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
	case errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, "role not found")
	case errors.Is(err, ErrNameTaken):
		httpx.Fail(w, http.StatusConflict, "role name already in use")
	case errors.Is(err, ErrSystemRole):
		httpx.Fail(w, http.StatusConflict, "system role is protected")
	case errors.Is(err, ErrRoleInUse):
		httpx.Fail(w, http.StatusConflict, "role still assigned to users")
	case errors.Is(err, ErrPermissionMissing):
		httpx.Fail(w, http.StatusNotFound, "assignment references unknown permission")
	case errors.Is(err, ErrNameRequired):
		httpx.Fail(w, http.StatusBadRequest, "role name required")
	default:
		h.logger.Error("roles: request failed", slog.Any("error", err))
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
