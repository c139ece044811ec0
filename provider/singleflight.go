package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/megayours/tma-session/session"
	"golang.org/x/sync/singleflight"
)

// CredentialKey identifies a credential value without exposing it.
func CredentialKey(p session.Provider, credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return p.String() + ":" + hex.EncodeToString(sum[:])
}

// SingleFlight collapses concurrent validations of the same credential into
// one call to the wrapped validator.
type SingleFlight struct {
	next  Validator
	group singleflight.Group
}

var _ Validator = (*SingleFlight)(nil)

func NewSingleFlight(next Validator) *SingleFlight {
	return &SingleFlight{next: next}
}

func (s *SingleFlight) Provider() session.Provider {
	return s.next.Provider()
}

// Validate joins an in-flight call for the same credential if there is one.
// The shared call is not cancelled when one caller gives up; it stays
// bounded by the validator timeout.
func (s *SingleFlight) Validate(ctx context.Context, credential string) (session.Session, error) {
	key := CredentialKey(s.next.Provider(), credential)
	shared := context.WithoutCancel(ctx)

	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.next.Validate(shared, credential)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(session.Session), nil
	}
}
