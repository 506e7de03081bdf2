package auth

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
)

type AccessClaims struct {
	UserID    int64
	SID       string
	Role      string
	ExpiresAt time.Time
}

type IssuedToken struct {
	AccessToken string
	ExpiresAt   time.Time
	Claims      AccessClaims
}
