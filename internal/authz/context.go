package authz

import (
	"context"
	"sort"
)

type permissionSetKey struct{}

// PermissionSet is the effective permission names attached to a request
// after the gate resolves an allow.
type PermissionSet map[string]struct{}

// Has reports whether the set contains the named permission.
func (ps PermissionSet) Has(name string) bool {
	_, ok := ps[name]
	return ok
}

// Names returns the set's permission names in sorted order.
func (ps PermissionSet) Names() []string {
	names := make([]string, 0, len(ps))
	for name := range ps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ContextWithPermissions attaches the effective set to the context.
func ContextWithPermissions(ctx context.Context, names []string) context.Context {
	set := make(PermissionSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return context.WithValue(ctx, permissionSetKey{}, set)
}

// PermissionsFromContext extracts the effective set attached by the gate.
// Requests that bypassed resolution, such as self access, carry none.
func PermissionsFromContext(ctx context.Context) (PermissionSet, bool) {
	set, ok := ctx.Value(permissionSetKey{}).(PermissionSet)
	return set, ok
}
