package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a@x.com", "a@x.com"},
		{"A@X.COM", "a@x.com"},
		{"  Mixed.Case@Example.org ", "mixed.case@example.org"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEmail(tt.in))
		})
	}
}

func TestSessionIsExpired(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{ExpiresAt: now.Add(time.Hour)}

	assert.False(t, s.IsExpired(now))
	assert.False(t, s.IsExpired(now.Add(59*time.Minute)))
	assert.True(t, s.IsExpired(now.Add(time.Hour)))
	assert.True(t, s.IsExpired(now.Add(2*time.Hour)))
}
