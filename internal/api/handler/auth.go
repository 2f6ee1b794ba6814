package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mcoot/dormo/internal/api/apierr"
	"github.com/mcoot/dormo/internal/api/request"
	"github.com/mcoot/dormo/internal/api/response"
	"github.com/mcoot/dormo/internal/services/auth"
	"github.com/mcoot/dormo/internal/services/session"
)

// AuthHandler handles the auth endpoints
type AuthHandler struct {
	authService *auth.Service
	cookies     session.CookieConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, cookies session.CookieConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
	}
}

// Register handles POST /api/v1.0/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request, _ session.Principal) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	ticket, err := h.authService.Register(r.Context(), creds.Email, creds.Password)
	if err != nil {
		apierr.Respond(w, r, err)
		return
	}

	http.SetCookie(w, session.NewCookie(h.cookies, ticket))
	response.JSON(w, http.StatusOK, response.Message{Message: response.MessageRegistered})
}

// Login handles POST /api/v1.0/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request, _ session.Principal) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	ticket, err := h.authService.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		apierr.Respond(w, r, err)
		return
	}

	http.SetCookie(w, session.NewCookie(h.cookies, ticket))
	response.JSON(w, http.StatusOK, response.Message{Message: response.MessageLoggedIn})
}

// Logout handles POST /api/v1.0/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request, principal session.Principal) {
	h.authService.Logout(r.Context(), principal)

	http.SetCookie(w, session.ClearCookie(h.cookies))
	response.JSON(w, http.StatusOK, response.Message{Message: response.MessageLoggedOut})
}

// Status handles GET /api/v1.0/auth/status
func (h *AuthHandler) Status(w http.ResponseWriter, _ *http.Request, principal session.Principal) {
	status := h.authService.Status(principal)
	response.JSON(w, http.StatusOK, response.AuthStatusFromService(status))
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (request.Credentials, bool) {
	var creds request.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return creds, false
	}
	return creds, true
}
