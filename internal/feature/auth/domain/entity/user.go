// Package entity defines the domain entities for the auth feature.
package entity

import (
	"time"

	"github.com/Nachitrix/Book-reader/internal/shared/authz"
)

// User represents a registered user in the system.
// It contains authentication credentials and metadata for user management.
type User struct {
	// ID is the unique identifier for the user.
	ID uint `gorm:"primaryKey" json:"id"`

	Name string `gorm:"size:100;not null" json:"name"`

	// Email is the user's email address used for authentication.
	// It must be unique across all users.
	Email string `gorm:"uniqueIndex;size:255;not null" json:"email"`

	// PasswordHash is the bcrypt hash of the user's password.
	// It is never serialized. Accounts created through an external identity
	// provider have an empty hash until a password is set.
	PasswordHash string `gorm:"size:255" json:"-"`

	Role authz.Role `gorm:"size:20;not null;default:user" json:"role"`

	Verified bool `gorm:"not null;default:false" json:"isVerified"`

	// ExternalID is the identifier assigned by the external identity provider, if linked.
	ExternalID *string `gorm:"size:255;index" json:"-"`

	Avatar string `gorm:"size:512" json:"avatar,omitempty"`

	// PasswordChangedAt is set on every password mutation. Tokens issued at or
	// before this instant (second resolution) are rejected.
	PasswordChangedAt *time.Time `json:"-"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updatedAt"`
}
