package permissions

import "errors"

var (
	// ErrNotFound indicates the permission does not exist.
	ErrNotFound = errors.New("permissions: not found")
	// ErrNameTaken indicates the canonical name is already registered.
	ErrNameTaken = errors.New("permissions: name already registered")
	// ErrInvalidName indicates the name is not a canonical dotted path.
	ErrInvalidName = errors.New("permissions: invalid name")
)
