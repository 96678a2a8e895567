package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", "console", time.Hour)

	token, err := svc.GenerateToken("op-1", "acme", "op@example.com")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acme", claims.Tenant)
	assert.Equal(t, "op-1", claims.Subject)
	assert.Equal(t, "op@example.com", claims.Email)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService("secret", "console", time.Hour)

	other, err := NewJWTService("other", "console", time.Hour).GenerateToken("op-1", "acme", "")
	require.NoError(t, err)
	_, err = svc.ValidateToken(other)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	wrongIssuer, err := NewJWTService("secret", "elsewhere", time.Hour).GenerateToken("op-1", "acme", "")
	require.NoError(t, err)
	_, err = svc.ValidateToken(wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong issuer")

	noTenant, err := svc.GenerateToken("op-1", "", "")
	require.NoError(t, err)
	_, err = svc.ValidateToken(noTenant)
	assert.ErrorIs(t, err, ErrMissingTenant)

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_Expired(t *testing.T) {
	issued := time.Date(2026, 11, 3, 9, 0, 0, 0, time.UTC)
	svc := &jwtService{secret: []byte("secret"), ttl: time.Minute, now: func() time.Time { return issued }}

	token, err := svc.GenerateToken("op-1", "acme", "")
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RejectsNoneAlgorithm(t *testing.T) {
	svc := NewJWTService("secret", "", time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Tenant: "acme"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
