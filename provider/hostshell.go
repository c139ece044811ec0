package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/megayours/tma-session/session"
)

// Validator turns a credential into a session.
type Validator interface {
	Provider() session.Provider
	Validate(ctx context.Context, credential string) (session.Session, error)
}

// HostShell validates the host init payload.
type HostShell struct {
	endpoint *endpoint
	scheme   string
}

var _ Validator = (*HostShell)(nil)

// NewHostShell returns a validator calling baseURL + /auth/validate.
func NewHostShell(baseURL string, opts ...Option) (*HostShell, error) {
	o := newOptions(DefaultHostValidatePath, opts)
	e, err := newEndpoint(session.ProviderHostShell, baseURL, o)
	if err != nil {
		return nil, fmt.Errorf("[NewHostShell] %w", err)
	}
	return &HostShell{endpoint: e, scheme: o.hostScheme}, nil
}

func (h *HostShell) Provider() session.Provider {
	return session.ProviderHostShell
}

// Validate sends "Authorization: <scheme> <credential>". An empty
// credential fails without any network call.
func (h *HostShell) Validate(ctx context.Context, credential string) (session.Session, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, session.NoCredential(session.ProviderHostShell)
	}

	authToken := h.scheme + " " + credential
	resp, err := h.endpoint.get(ctx, authToken)
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.status) {
		return nil, session.Rejected(session.ProviderHostShell, resp.status, nil)
	}

	id, name, err := decodeIdentity(resp.body)
	if err != nil {
		return nil, session.Rejected(session.ProviderHostShell, resp.status, err)
	}

	return session.HostShellSession{
		Identity: session.Identity{
			ID:         id,
			Username:   name,
			Credential: credential,
			RawUser:    string(resp.body),
			AuthToken:  authToken,
		},
	}, nil
}
