package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-sentinel/aegis/pkg/config"
	domainErrors "github.com/aegis-sentinel/aegis/pkg/domain/errors"
	"github.com/aegis-sentinel/aegis/pkg/infra/auth"
)

const testSecret = "super-secret-signing-key"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifier_ValidToken(t *testing.T) {
	verifier := auth.NewJWTVerifier(&config.AuthConfig{JWTSecret: testSecret})

	token := signToken(t, jwt.MapClaims{
		"sub": "user-1234",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	caller, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1234", caller.Subject)
	assert.False(t, caller.Guest)
}

func TestVerifier_MissingToken(t *testing.T) {
	verifier := auth.NewJWTVerifier(&config.AuthConfig{JWTSecret: testSecret})

	_, err := verifier.Verify(context.Background(), "")
	assert.True(t, errors.Is(err, domainErrors.ErrMissingCredential))
}

func TestVerifier_ExpiredToken(t *testing.T) {
	verifier := auth.NewJWTVerifier(&config.AuthConfig{JWTSecret: testSecret})

	token := signToken(t, jwt.MapClaims{
		"sub": "user-1234",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}, testSecret)

	_, err := verifier.Verify(context.Background(), token)
	assert.True(t, errors.Is(err, domainErrors.ErrInvalidCredential))
}

func TestVerifier_WrongSecret(t *testing.T) {
	verifier := auth.NewJWTVerifier(&config.AuthConfig{JWTSecret: testSecret})

	token := signToken(t, jwt.MapClaims{"sub": "user-1234"}, "other-secret")

	_, err := verifier.Verify(context.Background(), token)
	assert.True(t, errors.Is(err, domainErrors.ErrInvalidCredential))
}

func TestVerifier_IssuerMismatch(t *testing.T) {
	verifier := auth.NewJWTVerifier(&config.AuthConfig{JWTSecret: testSecret, Issuer: "aegis"})

	token := signToken(t, jwt.MapClaims{"sub": "user-1234", "iss": "someone-else"}, testSecret)

	_, err := verifier.Verify(context.Background(), token)
	assert.True(t, errors.Is(err, domainErrors.ErrInvalidCredential))
}

func TestVerifier_NoSubject(t *testing.T) {
	verifier := auth.NewJWTVerifier(&config.AuthConfig{JWTSecret: testSecret})

	token := signToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}, testSecret)

	_, err := verifier.Verify(context.Background(), token)
	assert.True(t, errors.Is(err, domainErrors.ErrInvalidCredential))
}
