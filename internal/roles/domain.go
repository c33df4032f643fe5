// Package roles manages named permission bundles and their atomic
// assignment to the catalog.
package roles

import "time"

// Role groups permission defaults for assignment to users.
type Role struct {
	ID           int64
	Name         string
	Description  string
	IsSystemRole bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PermissionRef is the catalog view used when listing a role's defaults.
type PermissionRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
