// Package tenant carries the current organization id explicitly through
// context.Context and scopes GORM queries by it. There is no process-wide
// "current organization"; every background task must carry the id itself.
package tenant

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNoTenant is returned when a tenant-scoped operation runs without an
// organization id.
var ErrNoTenant = errors.New("no organization selected")

type ctxKey struct{}

// WithOrganization returns a copy of ctx bound to orgID.
func WithOrganization(ctx context.Context, orgID uint) context.Context {
	return context.WithValue(ctx, ctxKey{}, orgID)
}

// FromContext returns the organization id bound to ctx.
func FromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(ctxKey{}).(uint)
	return id, ok && id != 0
}

// Require is FromContext that reports a missing tenant as ErrNoTenant.
func Require(ctx context.Context) (uint, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return 0, ErrNoTenant
	}
	return id, nil
}

// Scope restricts a query to rows of orgID. It is the only sanctioned way
// to read tenant-owned tables.
func Scope(orgID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("organization_id = ?", orgID)
	}
}

// ScopeTable is Scope with a table qualifier, for joined queries.
func ScopeTable(table string, orgID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".organization_id = ?", orgID)
	}
}
