package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var (
	ErrEmptyToken        = errors.New("empty bearer token")
	ErrUndecodableToken  = errors.New("bearer token payload cannot be decoded")
	ErrMissingExpiration = errors.New("bearer token has no exp claim")
)

// Claims is the subset of the bearer token payload the client looks at.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// ParseUnverified decodes the payload segment of raw without checking the
// signature, and requires an exp claim.
func ParseUnverified(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyToken
	}

	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodableToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingExpiration, err)
	}
	if exp == nil {
		return nil, ErrMissingExpiration
	}

	sub, _ := claims.GetSubject()
	return &Claims{
		Subject:   sub,
		ExpiresAt: exp.Time,
	}, nil
}

// ParseExpiration returns the exp claim of raw as a time.
func ParseExpiration(raw string) (time.Time, error) {
	c, err := ParseUnverified(raw)
	if err != nil {
		return time.Time{}, err
	}
	return c.ExpiresAt, nil
}
