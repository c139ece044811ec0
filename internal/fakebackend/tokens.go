package fakebackend

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Mint returns an HS256 bearer token for sub that expires ttl from now.
// A non-positive ttl produces an already expired token.
func (s *Server) Mint(sub, name string, ttl time.Duration) (string, error) {
	now := s.nowTime()
	claims := jwtlib.MapClaims{
		"sub": sub,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if name != "" {
		claims["name"] = name
	}

	tok, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("[fakebackend.Mint] failed to sign token: %w", err)
	}
	return tok, nil
}

// verify checks the signature and expiry of a bearer token minted by Mint.
func (s *Server) verify(raw string) (User, error) {
	claims := jwtlib.MapClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(*jwtlib.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(s.nowTime),
	)
	if err != nil {
		return User{}, err
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return User{}, fmt.Errorf("token has no subject")
	}
	name, _ := claims["name"].(string)
	return User{ID: sub, Username: name}, nil
}
