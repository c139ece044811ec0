package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/megayours/tma-session/session"
	"github.com/megayours/tma-session/token"
)

// ExternalOAuth validates the bearer token deposited by the authorize flow.
type ExternalOAuth struct {
	endpoint *endpoint
	tokens   *token.Store
}

var _ Validator = (*ExternalOAuth)(nil)

// NewExternalOAuth returns a validator calling baseURL + /auth/oauth/validate.
// tokens is read when Validate is called without a credential and purged
// when the backend rejects the stored token.
func NewExternalOAuth(baseURL string, tokens *token.Store, opts ...Option) (*ExternalOAuth, error) {
	if tokens == nil {
		return nil, errors.New("[NewExternalOAuth] token store is required")
	}
	o := newOptions(DefaultOAuthValidatePath, opts)
	e, err := newEndpoint(session.ProviderExternalOAuth, baseURL, o)
	if err != nil {
		return nil, fmt.Errorf("[NewExternalOAuth] %w", err)
	}
	return &ExternalOAuth{endpoint: e, tokens: tokens}, nil
}

func (v *ExternalOAuth) Provider() session.Provider {
	return session.ProviderExternalOAuth
}

// Validate checks credential, or the stored bearer token when credential is
// empty. A token without a decodable exp claim is rejected and purged
// without a network call.
func (v *ExternalOAuth) Validate(ctx context.Context, credential string) (session.Session, error) {
	tok := strings.TrimSpace(credential)
	if tok == "" {
		stored, err := v.tokens.Load(ctx)
		if err != nil {
			return nil, session.Transient(session.ProviderExternalOAuth, err)
		}
		tok = stored
	}
	if tok == "" {
		return nil, session.NoCredential(session.ProviderExternalOAuth)
	}

	exp, err := token.ParseExpiration(tok)
	if err != nil {
		v.purge(ctx, tok)
		return nil, session.Rejected(session.ProviderExternalOAuth, 0, err)
	}

	authToken := "Bearer " + tok
	resp, err := v.endpoint.get(ctx, authToken)
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.status) {
		v.purge(ctx, tok)
		return nil, session.Rejected(session.ProviderExternalOAuth, resp.status, nil)
	}

	// The backend accepted the token, so a body without an identity is no
	// reason to drop it.
	id, name, err := decodeIdentity(resp.body)
	if err != nil {
		return nil, session.Rejected(session.ProviderExternalOAuth, resp.status, err)
	}

	return session.NewExternalOAuthSession(session.Identity{
		ID:         id,
		Username:   name,
		Credential: tok,
		RawUser:    string(resp.body),
		AuthToken:  authToken,
	}, exp), nil
}

// purge clears the stored token if it is the one that was rejected.
func (v *ExternalOAuth) purge(ctx context.Context, rejected string) {
	stored, err := v.tokens.Load(context.WithoutCancel(ctx))
	if err != nil {
		v.endpoint.logger.Warn().Err(err).Msg("unable to read bearer token for purge")
		return
	}
	if stored != rejected {
		return
	}
	if err := v.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
		v.endpoint.logger.Warn().Err(err).Msg("unable to purge rejected bearer token")
		return
	}
	v.endpoint.logger.Info().Msg("purged rejected bearer token")
}
