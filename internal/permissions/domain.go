// Package permissions maintains the catalog of atomic capabilities that
// roles and per-user overrides refer to by name.
package permissions

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Permission is one atomic capability in the catalog.
type Permission struct {
	ID          int64
	Name        string
	Resource    string
	Action      string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Canonical names are lowercase dotted paths, e.g. "courses.view" or
// "payments.refund". The final segment is the action, everything before
// it the resource.
var nameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)

var titleCaser = cases.Title(language.English)

// ParseName splits a canonical permission name into resource and action.
func ParseName(name string) (resource, action string, ok bool) {
	name = strings.TrimSpace(strings.ToLower(name))
	if !nameRegex.MatchString(name) {
		return "", "", false
	}
	idx := strings.LastIndex(name, ".")
	return name[:idx], name[idx+1:], true
}

// DisplayLabel renders a readable label for admin screens, e.g.
// "Courses / View".
func DisplayLabel(name string) string {
	resource, action, ok := ParseName(name)
	if !ok {
		return name
	}
	resource = strings.ReplaceAll(resource, ".", " ")
	return titleCaser.String(resource) + " / " + titleCaser.String(action)
}
