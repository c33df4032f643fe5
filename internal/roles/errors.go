package roles

import "errors"

var (
	// ErrNotFound indicates the role does not exist.
	ErrNotFound = errors.New("roles: not found")
	// ErrNameRequired indicates a blank role name.
	ErrNameRequired = errors.New("roles: name required")
	// ErrNameTaken indicates the role name is already in use.
	ErrNameTaken = errors.New("roles: name already in use")
	// ErrSystemRole indicates an attempt to rename or delete a protected role.
	ErrSystemRole = errors.New("roles: system role is protected")
	// ErrRoleInUse indicates users still reference the role.
	ErrRoleInUse = errors.New("roles: role still assigned to users")
	// ErrPermissionMissing indicates an assignment names an unknown permission.
	ErrPermissionMissing = errors.New("roles: unknown permission in assignment")
)
