package model

import "time"

// TokenManager issues and validates bearer tokens of the admin API.
type TokenManager interface {
	GenerateAccessToken(subject string, ttl time.Duration) (string, error)
	ParseAccessToken(token string) (subject string, err error)
}
