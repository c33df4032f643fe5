package authz

import (
	"context"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/lyceum-erp/lyceum-erp/internal/platform/httpx"
	"github.com/lyceum-erp/lyceum-erp/internal/shared"
)

// Resolver answers permission checks for the gate. *Service satisfies it.
type Resolver interface {
	ResolveAny(ctx context.Context, userID int64, permissions []string) (bool, error)
	ResolveAll(ctx context.Context, userID int64, permissions []string) (bool, error)
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

// SelfIDFunc extracts the user ID a request is about, so routes can let
// users reach their own records without a permission.
type SelfIDFunc func(r *http.Request) (int64, bool)

// SelfIDFromURLParam builds a SelfIDFunc reading a chi route parameter.
func SelfIDFromURLParam(param string) SelfIDFunc {
	return func(r *http.Request) (int64, bool) {
		raw := chi.URLParam(r, param)
		if raw == "" {
			return 0, false
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	}
}

// Requirement describes what a guarded route demands. An empty permission
// list admits any authenticated principal.
type Requirement struct {
	Permissions []string
	RequireAll  bool
	AllowSelf   bool
	SelfID      SelfIDFunc
}

// Gate wires authorization checks for HTTP handlers.
type Gate struct {
	Service Resolver
	Logger  *slog.Logger
	Events  *Recorder
}

// RequireAny admits principals holding at least one of the permissions.
func (g Gate) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return g.Require(Requirement{Permissions: perms})
}

// RequireAll admits principals holding every permission.
func (g Gate) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return g.Require(Requirement{Permissions: perms, RequireAll: true})
}

// Require guards a route with the given requirement. Anonymous requests get
// 401, insufficient principals get 403, and allowed requests continue with
// the principal's effective permission set on the context.
func (g Gate) Require(req Requirement) func(http.Handler) http.Handler {
	normalized := NormalizeNames(req.Permissions)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, ok := shared.PrincipalFromContext(ctx)
			if !ok {
				g.Events.Denied(ctx, DenialEvent{
					RequiredPermissions: normalized,
					Method:              r.Method,
					Path:                r.URL.Path,
					Reason:              ReasonAuthenticationRequired,
				})
				httpx.Unauthorized(w)
				return
			}
			if req.AllowSelf && req.SelfID != nil {
				if targetID, found := req.SelfID(r); found && targetID == principal.UserID {
					g.Events.Allowed()
					next.ServeHTTP(w, r)
					return
				}
			}
			if len(normalized) == 0 {
				g.Events.Allowed()
				next.ServeHTTP(w, r)
				return
			}
			resolve := g.Service.ResolveAny
			if req.RequireAll {
				resolve = g.Service.ResolveAll
			}
			allowed, err := resolve(ctx, principal.UserID, normalized)
			if !allowed {
				reason := ReasonPermissionDenied
				if err != nil {
					reason = ReasonInfrastructureError
				}
				g.Events.Denied(ctx, DenialEvent{
					PrincipalID:         &principal.UserID,
					RequiredPermissions: normalized,
					Method:              r.Method,
					Path:                r.URL.Path,
					Reason:              reason,
				})
				httpx.JSON(w, http.StatusForbidden, deniedResponse{
					Message:             "Insufficient permissions",
					RequiredPermissions: normalized,
				})
				return
			}
			g.Events.Allowed()
			if set, err := g.Service.EffectivePermissions(ctx, principal.UserID); err != nil {
				if g.Logger != nil {
					g.Logger.Warn("authz: effective set unavailable",
						slog.Int64("user_id", principal.UserID),
						slog.Any("error", err))
				}
			} else {
				r = r.WithContext(ContextWithPermissions(ctx, set))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// deniedResponse lists the full requirement, never the missing subset.
type deniedResponse struct {
	Success             bool     `json:"success"`
	Message             string   `json:"message"`
	RequiredPermissions []string `json:"requiredPermissions"`
}
