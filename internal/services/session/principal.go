package session

import (
	"time"

	"github.com/mcoot/dormo/internal/model"
)

// Principal is the caller identity resolved for a single request.
// The zero value is the anonymous principal.
type Principal struct {
	SessionID  model.SessionID
	IdentityID model.IdentityID
	UserName   string
	ExpiresAt  time.Time
}

// Anonymous returns the principal of a request without a valid session
func Anonymous() Principal {
	return Principal{}
}

// IsAuthenticated reports whether the principal came from a valid session
func (p Principal) IsAuthenticated() bool {
	return p.SessionID != ""
}
