package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager(testSecret)

	token, err := tm.GenerateAccessToken(42, "amal@gpms.edu.ye", []string{"student"})
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int32(42), claims.UserID)
	assert.Equal(t, "amal@gpms.edu.ye", claims.Email)
	assert.Equal(t, []string{"student"}, claims.Roles)
	assert.Equal(t, TokenTypeAccess, claims.Type)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager(testSecret)

	other, err := NewTokenManager("ffffffffffffffffffffffffffffffff").GenerateAccessToken(1, "", nil)
	require.NoError(t, err)
	_, err = tm.ValidateToken(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tm.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expiring := &tokenManager{secret: []byte(testSecret), ttl: time.Minute, now: func() time.Time {
		return time.Now().Add(-2 * time.Hour)
	}}
	old, err := expiring.GenerateAccessToken(1, "", nil)
	require.NoError(t, err)
	_, err = tm.ValidateToken(old)
	assert.ErrorIs(t, err, ErrExpiredToken)

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, UserClaims{
		UserID: 1,
		Type:   "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{accessAudience},
		},
	})
	signed, err := refresh.SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = tm.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}
