package permissions

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

// Handler manages permission catalog HTTP endpoints.
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

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAny(shared.PermPermissionsView, shared.PermPermissionsEdit))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAll(shared.PermPermissionsEdit))
		r.Post("/", h.create)
		r.Post("/bulk", h.createBulk)
		r.Delete("/{permissionID}", h.delete)
	})
}

// list handles GET /api/permissions
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toResponses(perms))
}

// create handles POST /api/permissions
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
	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, toResponse(created))
}

// createBulk handles POST /api/permissions/bulk
func (h *Handler) createBulk(w http.ResponseWriter, r *http.Request) {
	var req BulkCreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, firstValidationError(err))
		return
	}
	created, err := h.service.CreateBatch(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, toResponses(created))
}

// delete handles DELETE /api/permissions/{permissionID}
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "permissionID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid permission id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "permission deleted"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, "permission not found")
	case errors.Is(err, ErrNameTaken):
		httpx.Fail(w, http.StatusConflict, "permission name already registered")
	case errors.Is(err, ErrInvalidName):
		httpx.Fail(w, http.StatusBadRequest, "permission name must be a dotted path like courses.view")
	default:
		h.logger.Error("permissions: request failed", slog.Any("error", err))
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
