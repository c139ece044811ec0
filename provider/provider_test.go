package provider_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/megayours/tma-session/internal/fakebackend"
	"github.com/megayours/tma-session/provider"
	"github.com/megayours/tma-session/session"
	"github.com/megayours/tma-session/storage/memory"
	"github.com/megayours/tma-session/token"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	backend *fakebackend.Server
	server  *httptest.Server
	tokens  *token.Store
	host    *provider.HostShell
	oauth   *provider.ExternalOAuth
}

func setupTestFixture(t *testing.T, opts ...provider.Option) *testFixture {
	t.Helper()

	backend := fakebackend.New()
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	tokens, err := token.NewStore(memory.New(), "")
	require.NoError(t, err)

	host, err := provider.NewHostShell(server.URL, opts...)
	require.NoError(t, err)
	oauth, err := provider.NewExternalOAuth(server.URL, tokens, opts...)
	require.NoError(t, err)

	return &testFixture{backend: backend, server: server, tokens: tokens, host: host, oauth: oauth}
}

func TestConstructors(t *testing.T) {
	_, err := provider.NewHostShell("")
	require.Error(t, err)
	_, err = provider.NewHostShell("not-a-url")
	require.Error(t, err)

	tokens, err := token.NewStore(memory.New(), "")
	require.NoError(t, err)
	_, err = provider.NewExternalOAuth("http://localhost", nil)
	require.ErrorContains(t, err, "token store is required")
	_, err = provider.NewExternalOAuth("http://localhost/", tokens, provider.WithPath("custom"))
	require.NoError(t, err)
}

func TestHostShell_Validate(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.backend.AddHostUser("abc", fakebackend.User{ID: "42", Name: "alice"})

	s, err := f.host.Validate(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, session.ProviderHostShell, s.Provider())

	id := s.GetIdentity()
	require.Equal(t, "42", id.ID)
	require.Equal(t, "alice", id.Username)
	require.Equal(t, "abc", id.Credential)
	require.Equal(t, "tma abc", id.AuthToken)
	require.JSONEq(t, `{"id":"42","name":"alice"}`, id.RawUser)

	_, hasExp := s.Expiration()
	require.False(t, hasExp)
	require.NoError(t, session.Validate(s))
}

func TestHostShell_NumericIDAndNameFallback(t *testing.T) {
	f := setupTestFixture(t)
	initData := url.Values{"user": {`{"id":7,"first_name":"Bob"}`}}.Encode()

	s, err := f.host.Validate(context.Background(), initData)
	require.NoError(t, err)
	require.Equal(t, "7", s.GetIdentity().ID)
	require.Equal(t, "Bob", s.GetIdentity().Username)
}

func TestHostShell_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty credential makes no call", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.host.Validate(ctx, "  ")
		require.ErrorIs(t, err, session.ErrNoCredentialAvailable)
		require.Zero(t, f.backend.TotalValidations())
	})

	t.Run("rejected", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.host.Validate(ctx, "unknown")
		require.ErrorIs(t, err, session.ErrValidationRejected)

		var verr *session.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, http.StatusUnauthorized, verr.StatusCode)
		require.Equal(t, session.ProviderHostShell, verr.Provider)
	})

	t.Run("unusable body", func(t *testing.T) {
		f := setupTestFixture(t)
		f.backend.AddHostUser("abc", fakebackend.User{ID: "42"})
		_, err := f.host.Validate(ctx, "abc")
		require.ErrorIs(t, err, session.ErrValidationRejected)
	})

	t.Run("timeout is transient", func(t *testing.T) {
		f := setupTestFixture(t, provider.WithTimeout(20*time.Millisecond))
		f.backend.AddHostUser("abc", fakebackend.User{ID: "42", Name: "alice"})
		f.backend.SetDelay(time.Second)

		_, err := f.host.Validate(ctx, "abc")
		require.ErrorIs(t, err, session.ErrValidationTransient)
	})

	t.Run("unreachable is transient", func(t *testing.T) {
		f := setupTestFixture(t)
		f.server.Close()
		_, err := f.host.Validate(ctx, "abc")
		require.True(t, session.IsTransient(err))
	})
}

func TestExternalOAuth_Validate(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	tok, err := f.backend.Mint("u-1", "carol", 2*time.Hour)
	require.NoError(t, err)
	require.NoError(t, f.tokens.Save(ctx, tok))

	s, err := f.oauth.Validate(ctx, "")
	require.NoError(t, err)
	require.Equal(t, session.ProviderExternalOAuth, s.Provider())
	require.Equal(t, "u-1", s.GetIdentity().ID)
	require.Equal(t, "carol", s.GetIdentity().Username)
	require.Equal(t, "Bearer "+tok, s.GetIdentity().AuthToken)

	exp, ok := s.Expiration()
	require.True(t, ok)
	want, err := token.ParseExpiration(tok)
	require.NoError(t, err)
	require.True(t, exp.Equal(want))
	require.NoError(t, session.Validate(s))
}

func TestExternalOAuth_NoToken(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.oauth.Validate(context.Background(), "")
	require.ErrorIs(t, err, session.ErrNoCredentialAvailable)
	require.Zero(t, f.backend.TotalValidations())
}

func TestExternalOAuth_ExpiredTokenRejectedAndPurged(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	tok, err := f.backend.Mint("u-1", "carol", -time.Second)
	require.NoError(t, err)
	require.NoError(t, f.tokens.Save(ctx, tok))

	_, err = f.oauth.Validate(ctx, "")
	require.ErrorIs(t, err, session.ErrValidationRejected)
	require.EqualValues(t, 1, f.backend.Calls(fakebackend.RouteOAuthValidate))

	stored, err := f.tokens.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestExternalOAuth_UndecodableTokenPurgedLocally(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	require.NoError(t, f.tokens.Save(ctx, "not-a-jwt"))

	_, err := f.oauth.Validate(ctx, "")
	require.ErrorIs(t, err, session.ErrValidationRejected)
	require.ErrorIs(t, err, token.ErrUndecodableToken)
	require.Zero(t, f.backend.TotalValidations())

	stored, err := f.tokens.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestExternalOAuth_TransientKeepsToken(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	tok, err := f.backend.Mint("u-1", "carol", time.Hour)
	require.NoError(t, err)
	require.NoError(t, f.tokens.Save(ctx, tok))

	f.server.Close()
	_, err = f.oauth.Validate(ctx, "")
	require.ErrorIs(t, err, session.ErrValidationTransient)

	stored, err := f.tokens.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, tok, stored)
}

func TestExternalOAuth_ExplicitCredentialDoesNotPurgeOtherToken(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	good, err := f.backend.Mint("u-1", "carol", time.Hour)
	require.NoError(t, err)
	require.NoError(t, f.tokens.Save(ctx, good))

	bad, err := f.backend.Mint("u-2", "dave", -time.Minute)
	require.NoError(t, err)
	_, err = f.oauth.Validate(ctx, bad)
	require.ErrorIs(t, err, session.ErrValidationRejected)

	stored, err := f.tokens.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, good, stored)
}

func TestExternalOAuth_UnusableIdentityKeepsToken(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	tokens, err := token.NewStore(memory.New(), "")
	require.NoError(t, err)
	oauth, err := provider.NewExternalOAuth(srv.URL, tokens)
	require.NoError(t, err)

	tok, err := fakebackend.New().Mint("u-1", "carol", time.Hour)
	require.NoError(t, err)
	require.NoError(t, tokens.Save(ctx, tok))

	_, err = oauth.Validate(ctx, "")
	require.ErrorIs(t, err, session.ErrValidationRejected)

	stored, err := tokens.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, tok, stored)
}

func TestSingleFlight_OneCallPerCredential(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.AddHostUser("abc", fakebackend.User{ID: "42", Name: "alice"})
	f.backend.SetDelay(50 * time.Millisecond)

	sf := provider.NewSingleFlight(f.host)
	require.Equal(t, session.ProviderHostShell, sf.Provider())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := sf.Validate(context.Background(), "abc")
			require.NoError(t, err)
			require.Equal(t, "42", s.GetIdentity().ID)
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, f.backend.Calls(fakebackend.RouteHostValidate))
}

func TestSingleFlight_CallerCancellation(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.AddHostUser("abc", fakebackend.User{ID: "42", Name: "alice"})
	f.backend.SetDelay(200 * time.Millisecond)

	sf := provider.NewSingleFlight(f.host)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sf.Validate(ctx, "abc")
	require.ErrorIs(t, err, context.Canceled)
}

func TestCredentialKey(t *testing.T) {
	a := provider.CredentialKey(session.ProviderHostShell, "abc")
	require.Equal(t, a, provider.CredentialKey(session.ProviderHostShell, "abc"))
	require.NotEqual(t, a, provider.CredentialKey(session.ProviderExternalOAuth, "abc"))
	require.NotEqual(t, a, provider.CredentialKey(session.ProviderHostShell, "abd"))
	require.NotContains(t, a, "abc")
}
