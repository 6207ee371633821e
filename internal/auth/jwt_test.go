package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/taskhive/taskhive-backend/internal/core/errors"
)

func TestTokenManager_UsesConfiguredTTL(t *testing.T) {
	ttl := 2 * time.Hour
	tm := NewTokenManager("test-secret", ttl)

	userID := uuid.New()

	start := time.Now()

	token, err := tm.GenerateToken(userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)

	expectedExpiry := start.Add(ttl)
	assert.WithinDuration(t, expectedExpiry, claims.ExpiresAt.Time, 2*time.Second)
}

func TestTokenManager_Verify(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	userID := uuid.New()

	t.Run("valid token resolves identity", func(t *testing.T) {
		token, err := tm.GenerateToken(userID)
		require.NoError(t, err)

		got, err := tm.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})

	t.Run("missing credential", func(t *testing.T) {
		_, err := tm.Verify("")
		assert.ErrorIs(t, err, apperrors.ErrTokenMissing)
	})

	t.Run("garbage credential", func(t *testing.T) {
		_, err := tm.Verify("not-a-jwt")
		assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
	})

	t.Run("token signed with a different secret", func(t *testing.T) {
		other := NewTokenManager("other-secret", time.Hour)
		token, err := other.GenerateToken(userID)
		require.NoError(t, err)

		_, err = tm.Verify(token)
		assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewTokenManager("test-secret", -time.Minute)
		token, err := expired.GenerateToken(userID)
		require.NoError(t, err)

		_, err = tm.Verify(token)
		assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
	})
}
