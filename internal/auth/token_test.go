package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_IssueParse(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	token, err := tm.Issue(42)
	require.NoError(t, err)

	userID, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestTokenManager_Parse_Invalid(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	t.Run("garbage token", func(t *testing.T) {
		_, err := tm.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("other-secret", time.Hour)
		token, err := other.Issue(42)
		require.NoError(t, err)

		_, err = tm.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		short := NewTokenManager("test-secret", -time.Minute)
		token, err := short.Issue(42)
		require.NoError(t, err)

		_, err = tm.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestCan(t *testing.T) {
	tests := []struct {
		name    string
		actor   Actor
		ownerID int64
		want    bool
	}{
		{"owner may mutate", Actor{UserID: 1, Role: RoleStandard}, 1, true},
		{"stranger may not", Actor{UserID: 2, Role: RoleStandard}, 1, false},
		{"elevated bypasses ownership", Actor{UserID: 99, Role: RoleElevated}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Can(tt.actor, tt.ownerID))
		})
	}
}
