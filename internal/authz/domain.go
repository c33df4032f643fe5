// Package authz implements permission resolution and request-time enforcement.
//
// A user's ability to perform a named action is decided from two inputs: the
// permission set assigned to the user's role and an optional per-user override
// row. Overrides always win over the role default; a missing override defers
// to the role. Every unknown input denies.
package authz

import (
	"sort"
	"strings"
)

// DecisionInput is the snapshot a single resolution reads. Both fields must
// come from one consistent read of storage.
type DecisionInput struct {
	// Override holds the override row's granted value, or nil when no
	// override row exists for the (user, permission) pair.
	Override *bool
	// RoleGrants reports whether the permission is assigned to the user's
	// role. False when the user is unknown or holds no role.
	RoleGrants bool
}

// Decide applies the precedence rule: explicit revoke, explicit grant, then
// role default. The zero value denies, which is what an unknown user or an
// unknown permission name produces.
func Decide(in DecisionInput) bool {
	switch {
	case in.Override != nil && !*in.Override:
		// Explicit revoke always wins, regardless of role assignment.
		return false
	case in.Override != nil:
		// Explicit grant wins even when the role lacks the permission.
		return true
	default:
		return in.RoleGrants
	}
}

// EffectiveRows carries the batched read backing an effective-set
// computation: the role's permission names plus every override row of the
// user, keyed by permission name.
type EffectiveRows struct {
	RoleNames []string
	Overrides map[string]bool
}

// EffectiveSet folds role names and overrides into the full set of names for
// which Decide would allow: start from the role set, add granted overrides,
// remove revoked ones. Names come back sorted so responses and cache payloads
// are stable.
func EffectiveSet(rows EffectiveRows) []string {
	set := make(map[string]struct{}, len(rows.RoleNames))
	for _, name := range rows.RoleNames {
		set[name] = struct{}{}
	}
	for name, granted := range rows.Overrides {
		if granted {
			set[name] = struct{}{}
		} else {
			delete(set, name)
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NormalizeNames trims, lowercases and deduplicates permission names,
// preserving first-seen order. Empty entries are dropped.
func NormalizeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	normalized := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		normalized = append(normalized, name)
	}
	return normalized
}
