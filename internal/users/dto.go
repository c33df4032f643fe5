package users

import (
	"time"

	"github.com/lyceum-erp/lyceum-erp/internal/authz"
	"github.com/lyceum-erp/lyceum-erp/internal/shared"
)

// UpdateRequest edits profile fields. Nil fields keep their current value;
// a request with every field nil is rejected.
type UpdateRequest struct {
	FullName *string `json:"fullName" validate:"omitempty,min=2,max=120"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

// AssignRoleRequest sets or clears the user's role reference. A null
// roleId leaves the user with override-only access.
type AssignRoleRequest struct {
	RoleID *int64 `json:"roleId"`
}

// OverrideRequest records a per-user exception. The pointer makes an
// explicit granted=false distinguishable from an absent field.
type OverrideRequest struct {
	Granted *bool `json:"granted" validate:"required"`
}

// Response is the API shape of one user.
type Response struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	RoleID    *int64    `json:"roleId"`
	RoleName  *string   `json:"roleName,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListResponse pages through users.
type ListResponse struct {
	Users      []Response        `json:"users"`
	Pagination shared.Pagination `json:"pagination"`
}

// PermissionsResponse shows the resolved set next to the raw overrides.
type PermissionsResponse struct {
	Effective []string         `json:"effective"`
	Overrides []authz.Override `json:"overrides"`
}

func toResponse(u UserWithRole) Response {
	return Response{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		RoleID:    u.RoleID,
		RoleName:  u.RoleName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toResponses(list []UserWithRole) []Response {
	out := make([]Response, 0, len(list))
	for _, u := range list {
		out = append(out, toResponse(u))
	}
	return out
}
