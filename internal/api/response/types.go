package response

import "github.com/mcoot/dormo/internal/services/auth"

// Message is the body of responses that only carry a message
type Message struct {
	Message string `json:"message"`
}

// Messages returned by the auth endpoints
const (
	MessageRegistered = "Registration successful"
	MessageLoggedIn   = "Login successful"
	MessageLoggedOut  = "Logout successful"
)

// AuthStatus is the response for the auth status endpoint
type AuthStatus struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	UserName        string `json:"username,omitempty"`
}

// AuthStatusFromService converts an auth.Status to a response AuthStatus
func AuthStatusFromService(s auth.Status) AuthStatus {
	return AuthStatus{
		IsAuthenticated: s.IsAuthenticated,
		UserName:        s.UserName,
	}
}

// Health is the response for the health endpoint
type Health struct {
	Status string `json:"status"`
}
