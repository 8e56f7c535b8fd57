package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", 42, "ADMIN", 5)
	require.NoError(t, err)

	claims, err := ParseAccessToken("secret", tok.Token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.Equal(t, "ADMIN", claims.Role)
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	tok, err := NewAccessToken("secret", 1, "USER", 5)
	require.NoError(t, err)

	_, err = ParseAccessToken("other", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	tok, err := NewAccessToken("secret", 1, "USER", -1)
	require.NoError(t, err)

	_, err = ParseAccessToken("secret", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenHash(t *testing.T) {
	a, err := NewRefreshToken(1)
	require.NoError(t, err)
	b, err := NewRefreshToken(1)
	require.NoError(t, err)

	assert.Len(t, a.Raw, 96)
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.Equal(t, HashRefreshRaw(a.Raw), HashRefreshRaw(a.Raw))
	assert.NotEqual(t, HashRefreshRaw(a.Raw), HashRefreshRaw(b.Raw))
}

func TestPassword(t *testing.T) {
	_, err := HashPassword("short", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "correct horse"))
	assert.False(t, VerifyPassword(hash, "wrong horse"))
}
