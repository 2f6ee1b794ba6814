package credentials

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, 1)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	ok, err := h.Compare(ctx, hash, "secret1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Compare(ctx, hash, "secret2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_LongPasswords(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, 1)
	ctx := context.Background()
	long := strings.Repeat("a", 72) + "1"

	hash, err := h.Hash(ctx, long)
	require.NoError(t, err)

	ok, err := h.Compare(ctx, hash, long)
	require.NoError(t, err)
	assert.True(t, ok)

	// Bytes past bcrypt's 72-byte limit still matter
	ok, err = h.Compare(ctx, hash, strings.Repeat("a", 72)+"2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_MalformedHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, 1)

	ok, err := h.Compare(context.Background(), "not-a-hash", "secret1")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_WaitsForSlot(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, 1)

	// Occupy the only slot
	require.NoError(t, h.sem.Acquire(context.Background(), 1))
	defer h.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Hash(ctx, "secret1")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = h.Compare(ctx, "$2a$04$abc", "secret1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPasswordPolicy_Check(t *testing.T) {
	policy := PasswordPolicy{RequiredLength: 6, RequireDigit: true}

	tests := []struct {
		password string
		want     []string
	}{
		{"secret1", nil},
		{"123456", nil},
		{"abc1", []string{CodePasswordTooShort}},
		{"abcdefg", []string{CodePasswordRequiresDigit}},
		{"", []string{CodePasswordTooShort, CodePasswordRequiresDigit}},
		{"ééé1", []string{CodePasswordTooShort}},
		{"éééé1x", nil},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			var got []string
			for _, r := range policy.Check(tt.password) {
				got = append(got, r.Code)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Reasons: []Reason{
		{Code: CodeInvalidEmail},
		{Code: CodePasswordTooShort},
	}}

	assert.Equal(t, "validation failed: InvalidEmail, PasswordTooShort", err.Error())
	assert.True(t, err.HasCode(CodePasswordTooShort))
	assert.False(t, err.HasCode(CodeDuplicateUserName))
}
