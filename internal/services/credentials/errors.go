package credentials

import (
	"fmt"
	"strings"
)

// Reason codes reported when registration input is rejected
const (
	CodeDuplicateUserName     = "DuplicateUserName"
	CodeInvalidEmail          = "InvalidEmail"
	CodePasswordTooShort      = "PasswordTooShort"
	CodePasswordRequiresDigit = "PasswordRequiresDigit"
)

// Reason describes one rejected aspect of a registration
type Reason struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ValidationError is returned when an identity cannot be created because of
// its input. It carries every reason, not just the first.
type ValidationError struct {
	Reasons []Reason
}

func (e *ValidationError) Error() string {
	codes := make([]string, len(e.Reasons))
	for i, r := range e.Reasons {
		codes[i] = r.Code
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(codes, ", "))
}

// HasCode reports whether the error includes a reason with the given code
func (e *ValidationError) HasCode(code string) bool {
	for _, r := range e.Reasons {
		if r.Code == code {
			return true
		}
	}
	return false
}

func duplicateUserName(userName string) Reason {
	return Reason{
		Code:        CodeDuplicateUserName,
		Description: fmt.Sprintf("Username '%s' is already taken.", userName),
	}
}

func invalidEmail(email string) Reason {
	return Reason{
		Code:        CodeInvalidEmail,
		Description: fmt.Sprintf("Email '%s' is invalid.", email),
	}
}
