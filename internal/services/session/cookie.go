package session

import (
	"net/http"
	"time"
)

// DefaultCookieName is the name of the session cookie
const DefaultCookieName = ".Dormo.Session"

// CookieConfig controls how the session cookie is written
type CookieConfig struct {
	Name   string
	Secure bool
}

// DefaultCookieConfig returns the default cookie settings
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:   DefaultCookieName,
		Secure: true,
	}
}

// NewCookie returns the cookie carrying the ticket's token.
// Non-persistent sessions get a browser-session cookie with no expiry.
func NewCookie(cfg CookieConfig, ticket *Ticket) *http.Cookie {
	cookie := &http.Cookie{
		Name:     cfg.Name,
		Value:    ticket.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	}
	if ticket.Session.Persistent {
		cookie.Expires = ticket.Session.ExpiresAt.UTC()
	}
	return cookie
}

// ClearCookie returns a cookie that removes the session cookie from the client
func ClearCookie(cfg CookieConfig) *http.Cookie {
	return &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}
