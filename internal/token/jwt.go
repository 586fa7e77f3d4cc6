package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/dirsync/internal/model"
)

const (
	issuer           = "dirsync"
	typeAdmin        = "admin"
	defaultAccessTTL = 15 * time.Minute
)

// Claims represents JWT claims of an admin API token.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"typ"`
}

// JWT implements TokenManager backed by symmetric HMAC.
type JWT struct {
	secretKey string
	now       func() time.Time
}

var _ model.TokenManager = (*JWT)(nil)

// NewJWT creates a new JWT token manager with the provided secret key.
func NewJWT(secretKey string) *JWT {
	return &JWT{secretKey: secretKey, now: time.Now}
}

// GenerateAccessToken creates an admin token for subject. A non-positive ttl
// uses the default lifetime.
func (j *JWT) GenerateAccessToken(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is empty")
	}
	if ttl <= 0 {
		ttl = defaultAccessTTL
	}

	now := j.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: typeAdmin,
	})

	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// ParseAccessToken validates an admin token and returns its subject.
func (j *JWT) ParseAccessToken(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return []byte(j.secretKey), nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to parse access token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("access token is invalid")
	}
	if claims.TokenType != typeAdmin {
		return "", fmt.Errorf("token type mismatch: %s", claims.TokenType)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("access token has no subject")
	}
	return claims.Subject, nil
}
