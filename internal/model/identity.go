package model

import (
	"strings"
	"time"
)

// IdentityID uniquely identifies a registered user
type IdentityID string

// Identity is a registered user account.
// The user name is the email address as entered; uniqueness is enforced on
// the normalized form.
type Identity struct {
	ID                IdentityID
	UserName          string
	Email             string
	NormalizedEmail   string
	PasswordHash      string
	LockoutEnabled    bool
	AccessFailedCount int
	CreatedAt         time.Time
}

// NormalizeEmail returns the canonical form used for uniqueness and lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
