package credentials

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// PasswordPolicy is the set of rules a new password must satisfy
type PasswordPolicy struct {
	RequiredLength int
	RequireDigit   bool
}

// Check returns a reason for every rule the password breaks, in rule order
func (p PasswordPolicy) Check(password string) []Reason {
	var reasons []Reason

	if utf8.RuneCountInString(password) < p.RequiredLength {
		reasons = append(reasons, Reason{
			Code:        CodePasswordTooShort,
			Description: fmt.Sprintf("Passwords must be at least %d characters.", p.RequiredLength),
		})
	}

	if p.RequireDigit && !strings.ContainsAny(password, "0123456789") {
		reasons = append(reasons, Reason{
			Code:        CodePasswordRequiresDigit,
			Description: "Passwords must have at least one digit ('0'-'9').",
		})
	}

	return reasons
}
