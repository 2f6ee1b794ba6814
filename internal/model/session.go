package model

import "time"

// SessionID is the token identifier (jti) of an issued session
type SessionID string

// Session is the server-side record of an issued session token.
// A token is only honoured while its record exists.
type Session struct {
	ID         SessionID
	IdentityID IdentityID
	UserName   string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Persistent bool
}

// IsExpired reports whether the session has passed its expiry at the given time
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
