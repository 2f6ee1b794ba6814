package model

import "errors"

// Common errors used across the application
var (
	// Identity errors
	ErrIdentityNotFound  = errors.New("identity not found")
	ErrDuplicateIdentity = errors.New("identity already exists")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
)
