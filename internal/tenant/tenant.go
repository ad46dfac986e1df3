// Package tenant carries the tenant identifier every core operation requires.
// There is no ambient "current tenant": callers pass an ID explicitly.
package tenant

import (
	"strings"

	"github.com/DebkantaDey/inventory-management-system/internal/apierror"
)

// ID identifies an isolated tenant. The zero value is never valid.
type ID string

func (id ID) String() string { return string(id) }

// Valid reports whether id is non-empty after trimming.
func (id ID) Valid() bool { return strings.TrimSpace(string(id)) != "" }

// Parse validates a raw tenant identifier (JWT claim, CLI flag).
func Parse(raw string) (ID, error) {
	id := ID(strings.TrimSpace(raw))
	if !id.Valid() {
		return "", apierror.Validation("tenant id is required")
	}
	return id, nil
}

// Require fails when id is the zero value. Every service entry point calls it.
func Require(id ID) error {
	if !id.Valid() {
		return apierror.Validation("tenant id is required")
	}
	return nil
}

// Guard checks that an entity loaded by primary key belongs to the expected
// tenant. A mismatch is a contract breach, never a business outcome.
func Guard(expected, actual ID, entity string) error {
	if expected != actual {
		return apierror.CrossTenant(entity, string(expected), string(actual))
	}
	return nil
}
