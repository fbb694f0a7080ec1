// Package authz implements role- and ownership-based access decisions and the
// per-request identity carried in context.Context.
package authz

import (
	"context"
	"slices"

	"github.com/Nachitrix/Book-reader/internal/shared/apperr"
)

// Role is a user's privilege level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Identity is the authenticated caller resolved by the session guard.
type Identity struct {
	UserID uint
	Role   Role
}

// IsAdmin reports whether the identity holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

var (
	// ErrForbidden is returned when a valid identity lacks the required privilege.
	ErrForbidden = apperr.E(apperr.ErrAuthorization, "FORBIDDEN", "not authorized to access this resource")

	// ErrNoIdentity is returned when a protected operation runs without an identity.
	ErrNoIdentity = apperr.E(apperr.ErrAuthentication, "UNAUTHENTICATED", "not authenticated")
)

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity attached by the session guard.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// AuthorizeRole passes when id holds one of allowed.
func AuthorizeRole(id Identity, allowed ...Role) error {
	if slices.Contains(allowed, id.Role) {
		return nil
	}
	return ErrForbidden
}

// AuthorizeOwnership passes when id owns the resource or is an admin.
func AuthorizeOwnership(id Identity, ownerID uint) error {
	if id.IsAdmin() {
		return nil
	}
	if id.UserID != 0 && id.UserID == ownerID {
		return nil
	}
	return ErrForbidden
}
