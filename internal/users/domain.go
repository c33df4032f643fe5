package users

import "time"

// User represents a user account for management. The identity subsystem
// owns the account lifecycle; this module edits the profile fields and the
// single role reference.
type User struct {
	ID        int64
	Email     string
	FullName  string
	RoleID    *int64
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserWithRole carries the resolved role name for listings.
type UserWithRole struct {
	User
	RoleName *string
}
