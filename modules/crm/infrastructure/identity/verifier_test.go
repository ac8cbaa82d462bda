package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenceo/agenceo/modules/crm/infrastructure/identity"
)

const testSecret = "super-secret-signing-key"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerify_ValidToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	verifier := identity.NewJWTVerifier(testSecret)
	got, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestVerify_RejectsBadTokens(t *testing.T) {
	t.Parallel()

	verifier := identity.NewJWTVerifier(testSecret)
	ctx := context.Background()

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, "other-secret", jwt.MapClaims{
			"sub": uuid.NewString(),
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		_, err := verifier.Verify(ctx, token)
		assert.ErrorIs(t, err, identity.ErrTokenInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{
			"sub": uuid.NewString(),
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		_, err := verifier.Verify(ctx, token)
		assert.ErrorIs(t, err, identity.ErrTokenInvalid)
	})

	t.Run("missing sub", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		_, err := verifier.Verify(ctx, token)
		assert.ErrorIs(t, err, identity.ErrTokenInvalid)
	})

	t.Run("sub not a uuid", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{
			"sub": "alice",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		_, err := verifier.Verify(ctx, token)
		assert.ErrorIs(t, err, identity.ErrTokenInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := verifier.Verify(ctx, "not.a.token")
		assert.ErrorIs(t, err, identity.ErrTokenInvalid)
	})
}
