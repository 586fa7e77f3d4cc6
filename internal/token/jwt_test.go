package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_AccessToken_Roundtrip(t *testing.T) {
	j := NewJWT("secret")

	access, err := j.GenerateAccessToken("ops@example.com", time.Minute)
	require.NoError(t, err)
	got, err := j.ParseAccessToken(access)
	require.NoError(t, err)
	require.Equal(t, "ops@example.com", got)
}

func TestJWT_EmptySubject(t *testing.T) {
	_, err := NewJWT("secret").GenerateAccessToken("", time.Minute)
	require.Error(t, err)
}

func TestJWT_WrongSecret(t *testing.T) {
	access, err := NewJWT("secret").GenerateAccessToken("ops", time.Minute)
	require.NoError(t, err)

	_, err = NewJWT("other").ParseAccessToken(access)
	require.Error(t, err)
}

func TestJWT_ExpiryValidation(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	j := &JWT{secretKey: "secret", now: func() time.Time { return now }}

	access, err := j.GenerateAccessToken("ops", time.Minute)
	require.NoError(t, err)
	_, err = j.ParseAccessToken(access)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = j.ParseAccessToken(access)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWT_DefaultTTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	j := &JWT{secretKey: "secret", now: func() time.Time { return now }}

	access, err := j.GenerateAccessToken("ops", 0)
	require.NoError(t, err)

	claims := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(access, claims)
	require.NoError(t, err)
	assert.Equal(t, now.Add(defaultAccessTTL).Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, "dirsync", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestJWT_TokenType_Mismatch(t *testing.T) {
	j := NewJWT("secret")

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "ops",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		TokenType: "refresh",
	})
	tokenString, err := foreign.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = j.ParseAccessToken(tokenString)
	require.Error(t, err)
}

func TestJWT_RejectsNoneAlgorithm(t *testing.T) {
	j := NewJWT("secret")

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "ops",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		TokenType: typeAdmin,
	})
	tokenString, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = j.ParseAccessToken(tokenString)
	require.Error(t, err)
}
