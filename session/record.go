package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/megayours/tma-session/internal/utils"
)

// record is the persisted JSON shape of a session.
type record struct {
	Provider   Provider `json:"provider"`
	ID         string   `json:"id"`
	Username   string   `json:"username"`
	Credential string   `json:"credential"`
	Expiration *int64   `json:"expiration,omitempty"` // Unix ms, external_oauth only
	RawUser    string   `json:"raw_user,omitempty"`
	AuthToken  string   `json:"auth_token"`
}

// Marshal validates s and encodes it as a JSON record.
func Marshal(s Session) ([]byte, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}
	id := s.GetIdentity()
	rec := record{
		Provider:   s.Provider(),
		ID:         id.ID,
		Username:   id.Username,
		Credential: id.Credential,
		RawUser:    id.RawUser,
		AuthToken:  id.AuthToken,
	}
	if exp, ok := s.Expiration(); ok {
		rec.Expiration = utils.Ptr(exp.UnixMilli())
	}
	return json.Marshal(rec)
}

// Unmarshal decodes a JSON record. Records that do not form a complete,
// provider-consistent session are rejected with ErrMalformedStoredSession.
func Unmarshal(data []byte) (Session, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStoredSession, err)
	}

	identity := Identity{
		ID:         rec.ID,
		Username:   rec.Username,
		Credential: rec.Credential,
		RawUser:    rec.RawUser,
		AuthToken:  rec.AuthToken,
	}

	var s Session
	switch rec.Provider {
	case ProviderHostShell:
		if rec.Expiration != nil {
			return nil, fmt.Errorf("%w: host_shell session with expiration", ErrMalformedStoredSession)
		}
		s = HostShellSession{Identity: identity}
	case ProviderExternalOAuth:
		if rec.Expiration == nil || utils.Value(rec.Expiration) <= 0 {
			return nil, fmt.Errorf("%w: external_oauth session without expiration", ErrMalformedStoredSession)
		}
		s = ExternalOAuthSession{Identity: identity, ExpiresAt: time.UnixMilli(*rec.Expiration)}
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrMalformedStoredSession, rec.Provider)
	}

	if err := Validate(s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStoredSession, err)
	}
	return s, nil
}
