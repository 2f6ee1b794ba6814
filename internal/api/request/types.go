package request

// Credentials is the request body for registering and logging in
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
