package users

import "errors"

var (
	// ErrNotFound indicates the user does not exist.
	ErrNotFound = errors.New("users: not found")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("users: email already registered")
	// ErrRoleNotFound indicates the assignment names an unknown role.
	ErrRoleNotFound = errors.New("users: role not found")
	// ErrEmptyUpdate indicates an update with no fields set.
	ErrEmptyUpdate = errors.New("users: empty update payload")
)
