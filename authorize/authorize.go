// Package authorize builds the redirect to the remote authorize step and
// accepts the bearer token it sends back.
package authorize

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/megayours/tma-session/session"
	"github.com/megayours/tma-session/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

var (
	ErrAuthorizeFailed = errors.New("authorization failed")
	ErrMissingToken    = errors.New("callback carries no token")
)

// Builder produces authorize URLs for one client and stores the token
// delivered to its callback.
type Builder struct {
	config          *oauth2.Config
	redirectBaseURL string
	tokens          *token.Store
	sessions        *session.Store
	logger          zerolog.Logger
}

type Option func(*Builder)

// WithScopes sets the scopes requested in the authorize URL.
func WithScopes(scopes ...string) Option {
	return func(b *Builder) {
		b.config.Scopes = scopes
	}
}

// WithSessionStore lets HandleCallback drop a stored session that was not
// built from the newly delivered token.
func WithSessionStore(sessions *session.Store) Option {
	return func(b *Builder) {
		b.sessions = sessions
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder returns a Builder for a static authorize endpoint.
func NewBuilder(authorizeURL, clientID, redirectBaseURL string, tokens *token.Store, opts ...Option) (*Builder, error) {
	if authorizeURL == "" {
		return nil, errors.New("[NewBuilder] authorize URL is required")
	}
	if _, err := url.ParseRequestURI(authorizeURL); err != nil {
		return nil, fmt.Errorf("[NewBuilder] invalid authorize URL: %w", err)
	}
	if redirectBaseURL == "" {
		return nil, errors.New("[NewBuilder] redirect base URL is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewBuilder] token store is required")
	}

	b := &Builder{
		config: &oauth2.Config{
			ClientID:    clientID,
			Endpoint:    oauth2.Endpoint{AuthURL: authorizeURL},
			RedirectURL: redirectBaseURL,
		},
		redirectBaseURL: redirectBaseURL,
		tokens:          tokens,
		logger:          log.Logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Discover reads the authorize endpoint from the issuer's OpenID
// configuration and returns a Builder for it.
func Discover(ctx context.Context, issuer, clientID, redirectBaseURL string, tokens *token.Store, opts ...Option) (*Builder, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("[Discover] failed to discover issuer %q: %w", issuer, err)
	}
	return NewBuilder(provider.Endpoint().AuthURL, clientID, redirectBaseURL, tokens, opts...)
}

// URL returns the authorize URL carrying state, the location to return to
// after the flow, and redirect_base_url.
func (b *Builder) URL(state string) string {
	return b.config.AuthCodeURL(state, oauth2.SetAuthURLParam("redirect_base_url", b.redirectBaseURL))
}

// HandleCallback stores the token from the callback parameters and returns
// the state location. "token" is preferred over "access_token".
func (b *Builder) HandleCallback(ctx context.Context, params url.Values) (string, error) {
	if errParam := params.Get("error"); errParam != "" {
		desc := params.Get("error_description")
		b.logger.Warn().Str("error", errParam).Str("description", desc).Msg("authorize step failed")
		if desc != "" {
			return "", fmt.Errorf("%w: %s - %s", ErrAuthorizeFailed, errParam, desc)
		}
		return "", fmt.Errorf("%w: %s", ErrAuthorizeFailed, errParam)
	}

	tok := params.Get("token")
	if tok == "" {
		tok = params.Get("access_token")
	}
	if strings.TrimSpace(tok) == "" {
		return "", ErrMissingToken
	}

	if err := b.tokens.Save(ctx, tok); err != nil {
		return "", fmt.Errorf("storing callback token: %w", err)
	}
	b.logger.Info().Msg("bearer token stored from callback")

	if err := b.dropStaleSession(ctx, tok); err != nil {
		return "", err
	}
	return params.Get("state"), nil
}

// dropStaleSession clears the stored session unless it was built from tok.
// Otherwise the cached identity would outlive the re-authorization until it
// fell inside the refresh margin.
func (b *Builder) dropStaleSession(ctx context.Context, tok string) error {
	if b.sessions == nil {
		return nil
	}
	s, err := b.sessions.Load(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("stored session unusable")
	}
	if s == nil || s.GetIdentity().Credential == tok {
		return nil
	}
	if err := b.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clearing previous session: %w", err)
	}
	b.logger.Info().Str("provider", s.Provider().String()).Msg("previous session cleared after re-authorization")
	return nil
}

// HandleCallbackURL is HandleCallback for a full callback URL. Parameters
// in the fragment are merged over the query.
func (b *Builder) HandleCallbackURL(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid callback URL: %w", err)
	}

	params := u.Query()
	if u.Fragment != "" {
		fragment, err := url.ParseQuery(u.Fragment)
		if err != nil {
			return "", fmt.Errorf("invalid callback fragment: %w", err)
		}
		for k, v := range fragment {
			params[k] = v
		}
	}
	return b.HandleCallback(ctx, params)
}
