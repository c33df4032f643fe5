package authz

import "errors"

// Domain errors for override management.
var (
	// ErrUserNotFound indicates the override references an unknown user.
	ErrUserNotFound = errors.New("authz: user not found")
	// ErrPermissionNotFound indicates the override references an unknown permission.
	ErrPermissionNotFound = errors.New("authz: permission not found")
	// ErrOverrideNotFound indicates no override row exists for the pair.
	ErrOverrideNotFound = errors.New("authz: override not found")
)
