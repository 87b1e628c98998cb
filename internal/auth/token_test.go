package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/coupon-service/internal/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	manager := auth.NewTokenManager("secret", 60)

	token, exp, err := manager.GenerateToken("u1", false)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := manager.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.False(t, claims.Anonymous)
}

func TestTokenCarriesAnonymousFlag(t *testing.T) {
	manager := auth.NewTokenManager("secret", 60)

	token, _, err := manager.GenerateToken("d1", true)
	require.NoError(t, err)

	claims, err := manager.ParseToken(token)
	require.NoError(t, err)
	assert.True(t, claims.Anonymous)
}

func TestTokenRejectedWithWrongSecret(t *testing.T) {
	issuer := auth.NewTokenManager("secret-a", 60)
	verifier := auth.NewTokenManager("secret-b", 60)

	token, _, err := issuer.GenerateToken("u1", false)
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.Error(t, err)
}

func TestTokenRejectedWhenMalformed(t *testing.T) {
	manager := auth.NewTokenManager("secret", 60)

	_, err := manager.ParseToken("not-a-token")
	assert.Error(t, err)
}
