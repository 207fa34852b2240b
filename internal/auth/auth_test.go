package auth_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Tiliavir/time-tracker-server/internal/auth"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, auth.CheckPassword(hash, "s3cret"))
	assert.False(t, auth.CheckPassword(hash, "wrong"))
}

func TestTokens(t *testing.T) {
	tokens := auth.NewTokens([]byte("key"), time.Hour)

	tok, err := tokens.Issue("u1", "ada@example.com", time.Now())
	require.NoError(t, err)

	claims, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)

	_, err = auth.NewTokens([]byte("other"), time.Hour).Verify(tok)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	expired, err := tokens.Issue("u1", "ada@example.com", time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = tokens.Verify(expired)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = tokens.Verify("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokensRejectNoneAlgorithm(t *testing.T) {
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = auth.NewTokens([]byte("key"), time.Hour).Verify(unsigned)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestPasswordGenerator(t *testing.T) {
	gen := auth.NewPasswordGenerator(bytes.NewReader(bytes.Repeat([]byte{0}, 64)))
	pw, err := gen.Generate()
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 12), pw, "a zero random source picks the first charset entry")

	pw, err = auth.NewPasswordGenerator(nil).Generate()
	require.NoError(t, err)
	assert.Len(t, pw, 12)

	_, err = auth.NewPasswordGenerator(bytes.NewReader(nil)).Generate()
	assert.Error(t, err)
}
