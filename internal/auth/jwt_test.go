package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/storefront/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Minute)

	raw, err := m.GenerateAccessToken("42", "ops@x.io", user.RoleAdmin)
	require.NoError(t, err)

	claims, err := m.VerifyAccessToken(raw)
	require.NoError(t, err)

	assert.Equal(t, "42", claims.UserID())
	assert.Equal(t, "ops@x.io", claims.Email)
	assert.Equal(t, user.RoleAdmin, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestVerifyAccessToken_WrongSecret(t *testing.T) {
	raw, err := NewManager("one", time.Minute).GenerateAccessToken("1", "a@x.io", user.RoleCustomer)
	require.NoError(t, err)

	_, err = NewManager("two", time.Minute).VerifyAccessToken(raw)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestVerifyAccessToken_Expired(t *testing.T) {
	m := NewManager("s", -time.Minute)

	raw, err := m.GenerateAccessToken("1", "a@x.io", user.RoleCustomer)
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(raw)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerifyAccessToken_RejectsOtherTokenTypes(t *testing.T) {
	secret := []byte("s")
	now := time.Now()

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	raw, err := refresh.SignedString(secret)
	require.NoError(t, err)

	_, err = NewManager("s", time.Minute).VerifyAccessToken(raw)
	assert.True(t, errors.Is(err, ErrInvalidTokenType), "got %v", err)
}

func TestVerifyAccessToken_RejectsNoneAlg(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewManager("s", time.Minute).VerifyAccessToken(raw)
	assert.Error(t, err)
}
