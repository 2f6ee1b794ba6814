package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mcoot/dormo/internal/errutil"
	"github.com/mcoot/dormo/internal/services/session"
)

// PrincipalHandlerFunc is a handler that is given the caller's principal
type PrincipalHandlerFunc func(w http.ResponseWriter, r *http.Request, principal session.Principal)

// Principal resolves session tokens into principals for handlers
type Principal struct {
	issuer     session.Issuer
	cookieName string
	logger     *slog.Logger
}

// NewPrincipal creates a resolver reading tokens from the named cookie
func NewPrincipal(issuer session.Issuer, cookieName string, logger *slog.Logger) *Principal {
	return &Principal{
		issuer:     issuer,
		cookieName: cookieName,
		logger:     logger,
	}
}

// Handle adapts h to http.Handler. Requests without a valid session get the
// anonymous principal. So do requests whose session cannot be checked because
// the store failed; that failure is logged.
func (p *Principal) Handle(h PrincipalHandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := p.Resolve(r)
		if err != nil {
			errutil.LogError(r.Context(), p.logger, "session validation failed", err,
				"method", r.Method, "path", r.URL.Path)
		}
		h(w, r, principal)
	})
}

// Resolve returns the principal for the request
func (p *Principal) Resolve(r *http.Request) (session.Principal, error) {
	token := p.extractToken(r)
	if token == "" {
		return session.Anonymous(), nil
	}

	principal, err := p.issuer.Validate(r.Context(), token)
	if errors.Is(err, session.ErrInvalidSession) {
		return session.Anonymous(), nil
	}
	if err != nil {
		return session.Anonymous(), err
	}
	return principal, nil
}

// extractToken extracts the session token from the request
func (p *Principal) extractToken(r *http.Request) string {
	cookie, err := r.Cookie(p.cookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	// Fall back to Authorization header for non-browser clients
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}
