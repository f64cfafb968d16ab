package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	tm := NewTokenManager("test-secret", 24)

	token, err := tm.GenerateToken("user123", "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user123", claims.UserID)
	assert.Equal(t, "alice", claims.UserName)
}

func TestParseTokenWrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret", 24)
	other := NewTokenManager("other-secret", 24)

	token, err := tm.GenerateToken("user123", "alice")
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret", -1)

	token, err := tm.GenerateToken("user123", "alice")
	require.NoError(t, err)

	_, err = tm.ParseToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestParseGarbageToken(t *testing.T) {
	tm := NewTokenManager("test-secret", 24)

	_, err := tm.ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
