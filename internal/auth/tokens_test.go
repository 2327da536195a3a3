package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", 30*time.Minute)
	issued, err := tokens.Issue("65a1b2c3d4e5f60718293a4b")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	parsed, err := tokens.Parse(issued.Value)
	require.NoError(t, err)
	assert.Equal(t, "65a1b2c3d4e5f60718293a4b", parsed.Subject)
	assert.Equal(t, issued.ID, parsed.ID)
	assert.WithinDuration(t, issued.ExpiresAt, parsed.ExpiresAt, time.Second)
}

func TestTokensExpired(t *testing.T) {
	tokens := NewTokens("secret", 30*time.Minute)
	issuedAt := time.Now().Add(-time.Hour)
	tokens.now = func() time.Time { return issuedAt }
	issued, err := tokens.Issue("65a1b2c3d4e5f60718293a4b")
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Parse(issued.Value)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, "token expired", err.Error())
}

func TestTokensRejectForeignSignature(t *testing.T) {
	issued, err := NewTokens("one", time.Minute).Issue("x")
	require.NoError(t, err)

	_, err = NewTokens("two", time.Minute).Parse(issued.Value)
	assert.ErrorIs(t, err, ErrTokenFormat)

	_, err = NewTokens("two", time.Minute).Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenFormat)
}
