package session

import (
	"fmt"
	"strings"
	"time"
)

// Provider tags the identity source a session came from.
type Provider string

const (
	ProviderHostShell     Provider = "host_shell"
	ProviderExternalOAuth Provider = "external_oauth"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	return p == ProviderHostShell || p == ProviderExternalOAuth
}

func (p Provider) String() string {
	return string(p)
}

// Identity holds the fields shared by both session variants.
type Identity struct {
	ID         string // Opaque user id returned by the backend
	Username   string // Display name returned by the backend
	Credential string // Host init payload or bearer token
	RawUser    string // Backend identity payload, kept for display and debugging only
	AuthToken  string // Ready-to-use Authorization header value
}

// Session is the sealed sum of HostShellSession and ExternalOAuthSession.
type Session interface {
	Provider() Provider
	GetIdentity() Identity

	// Expiration returns the token expiry. ok is false for host shell sessions.
	Expiration() (exp time.Time, ok bool)

	sealed()
}

// HostShellSession is validated by relaunching inside the host shell, so it
// carries no client-visible expiration.
type HostShellSession struct {
	Identity
}

func (HostShellSession) Provider() Provider {
	return ProviderHostShell
}

func (s HostShellSession) GetIdentity() Identity {
	return s.Identity
}

func (HostShellSession) Expiration() (time.Time, bool) {
	return time.Time{}, false
}

func (HostShellSession) sealed() {}

// ExternalOAuthSession carries the expiry decoded from its bearer token.
type ExternalOAuthSession struct {
	Identity
	ExpiresAt time.Time
}

// NewExternalOAuthSession truncates exp to millisecond precision, the
// precision the session is persisted with.
func NewExternalOAuthSession(identity Identity, exp time.Time) ExternalOAuthSession {
	return ExternalOAuthSession{
		Identity:  identity,
		ExpiresAt: time.UnixMilli(exp.UnixMilli()),
	}
}

func (ExternalOAuthSession) Provider() Provider {
	return ProviderExternalOAuth
}

func (s ExternalOAuthSession) GetIdentity() Identity {
	return s.Identity
}

func (s ExternalOAuthSession) Expiration() (time.Time, bool) {
	return s.ExpiresAt, true
}

func (ExternalOAuthSession) sealed() {}

// RemainingValidity returns how long the session stays valid after now.
// Host shell sessions report ok=false.
func RemainingValidity(s Session, now time.Time) (time.Duration, bool) {
	exp, ok := s.Expiration()
	if !ok {
		return 0, false
	}
	return exp.Sub(now), true
}

// Validate checks that s is fully formed and consistent with its provider.
func Validate(s Session) error {
	if s == nil {
		return fmt.Errorf("%w: nil session", ErrIncompleteSession)
	}
	if !s.Provider().Valid() {
		return fmt.Errorf("%w: unknown provider %q", ErrIncompleteSession, s.Provider())
	}

	id := s.GetIdentity()
	missing := make([]string, 0, 4)
	if strings.TrimSpace(id.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(id.Username) == "" {
		missing = append(missing, "username")
	}
	if id.Credential == "" {
		missing = append(missing, "credential")
	}
	if id.AuthToken == "" {
		missing = append(missing, "auth_token")
	}
	if exp, ok := s.Expiration(); ok && exp.IsZero() {
		missing = append(missing, "expiration")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteSession, strings.Join(missing, ", "))
	}
	return nil
}
