package redis

import (
	"fmt"

	"github.com/mcoot/dormo/internal/model"
)

// Key prefix for all auth data
const keyPrefix = "dormo"

// identityKey returns the Redis key for an Identity, indexed by normalized
// email so that SETNX enforces uniqueness
func identityKey(normalizedEmail string) string {
	return fmt.Sprintf("%s:identity:%s", keyPrefix, normalizedEmail)
}

// sessionKey returns the Redis key for a Session record
func sessionKey(id model.SessionID) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, id)
}
