package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/registration-service/internal/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := auth.NewTokenManager("secret", 15)

	token, expiresAt, err := tm.GenerateToken("admin@sanjivani.edu.in")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, "admin@sanjivani.edu.in", claims.Email)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	issuer := auth.NewTokenManager("secret-a", 15)
	verifier := auth.NewTokenManager("secret-b", 15)

	token, _, err := issuer.GenerateToken("admin@sanjivani.edu.in")
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	require.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	tm := auth.NewTokenManager("secret", 15)
	_, err := tm.ParseToken("not.a.jwt")
	require.Error(t, err)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := auth.HashPassword("Ab3dEf9h", 4)
	require.NoError(t, err)
	require.NotEqual(t, "Ab3dEf9h", hash)

	require.NoError(t, auth.ComparePassword(hash, "Ab3dEf9h"))
	require.Error(t, auth.ComparePassword(hash, "wrong"))
}
