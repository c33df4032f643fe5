package roles

import "time"

// CreateRequest creates a non-system role.
type CreateRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=64"`
	Description string `json:"description" validate:"max=255"`
}

// UpdateRequest renames a role or changes its description. Nil fields keep
// their current value.
type UpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=3,max=64"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

// SyncPermissionsRequest replaces the role's whole assignment set. The
// pointer distinguishes an absent field from an explicit empty list, which
// is valid and clears every assignment.
type SyncPermissionsRequest struct {
	PermissionIDs *[]int64 `json:"permissionIds" validate:"required"`
}

// Response is the API shape of one role.
type Response struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	IsSystemRole bool            `json:"isSystemRole"`
	Permissions  []PermissionRef `json:"permissions,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func toResponse(role Role, perms []PermissionRef) Response {
	return Response{
		ID:           role.ID,
		Name:         role.Name,
		Description:  role.Description,
		IsSystemRole: role.IsSystemRole,
		Permissions:  perms,
		CreatedAt:    role.CreatedAt,
		UpdatedAt:    role.UpdatedAt,
	}
}

func toResponses(list []Role) []Response {
	out := make([]Response, 0, len(list))
	for _, role := range list {
		out = append(out, toResponse(role, nil))
	}
	return out
}
