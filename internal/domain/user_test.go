package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUser_Name(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{"display name wins", User{DisplayName: "Mara", Email: "mara@example.com"}, "Mara"},
		{"falls back to email", User{Email: "mara@example.com"}, "mara@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.Name())
		})
	}
}

func TestSession_IsExpired(t *testing.T) {
	live := Session{ExpiresAt: time.Now().Add(time.Hour)}
	dead := Session{ExpiresAt: time.Now().Add(-time.Minute)}

	assert.False(t, live.IsExpired())
	assert.True(t, dead.IsExpired())
}
