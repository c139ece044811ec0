package fakebackend_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/megayours/tma-session/internal/fakebackend"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, srv *fakebackend.Server, path, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHostValidate(t *testing.T) {
	srv := fakebackend.New()
	srv.AddHostUser("abc", fakebackend.User{ID: "42", Name: "alice"})

	rec := do(t, srv, fakebackend.RouteHostValidate, "tma abc")
	require.Equal(t, http.StatusOK, rec.Code)

	var user fakebackend.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	require.Equal(t, "42", user.ID)
	require.Equal(t, "alice", user.Name)

	initData := url.Values{"user": {`{"id":7,"first_name":"Bob"}`}, "hash": {"x"}}.Encode()
	rec = do(t, srv, fakebackend.RouteHostValidate, "tma "+initData)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"id":7,"first_name":"Bob"}`, rec.Body.String())

	require.Equal(t, http.StatusUnauthorized, do(t, srv, fakebackend.RouteHostValidate, "tma unknown").Code)
	require.Equal(t, http.StatusUnauthorized, do(t, srv, fakebackend.RouteHostValidate, "Bearer abc").Code)
	require.Equal(t, http.StatusUnauthorized, do(t, srv, fakebackend.RouteHostValidate, "").Code)
	require.EqualValues(t, 5, srv.Calls(fakebackend.RouteHostValidate))
}

func TestOAuthValidate(t *testing.T) {
	now := time.Now()
	srv := fakebackend.New(fakebackend.WithNowTime(func() time.Time { return now }))

	tok, err := srv.Mint("u-1", "carol", time.Hour)
	require.NoError(t, err)

	rec := do(t, srv, fakebackend.RouteOAuthValidate, "Bearer "+tok)
	require.Equal(t, http.StatusOK, rec.Code)
	var user fakebackend.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	require.Equal(t, fakebackend.User{ID: "u-1", Username: "carol"}, user)

	expired, err := srv.Mint("u-1", "carol", -time.Second)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, do(t, srv, fakebackend.RouteOAuthValidate, "Bearer "+expired).Code)

	other := fakebackend.New(fakebackend.WithSecret([]byte("other")))
	foreign, err := other.Mint("u-1", "carol", time.Hour)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, do(t, srv, fakebackend.RouteOAuthValidate, "Bearer "+foreign).Code)

	require.EqualValues(t, 3, srv.Calls(fakebackend.RouteOAuthValidate))
	require.EqualValues(t, 3, srv.TotalValidations())
}

func TestFailWith(t *testing.T) {
	srv := fakebackend.New()
	srv.AddHostUser("abc", fakebackend.User{ID: "1", Name: "a"})

	srv.FailWith(http.StatusServiceUnavailable)
	require.Equal(t, http.StatusServiceUnavailable, do(t, srv, fakebackend.RouteHostValidate, "tma abc").Code)

	srv.FailWith(0)
	require.Equal(t, http.StatusOK, do(t, srv, fakebackend.RouteHostValidate, "tma abc").Code)
}

func TestAuthorizeRedirect(t *testing.T) {
	srv := fakebackend.New()

	q := url.Values{
		"state":             {"/profile"},
		"redirect_base_url": {"http://localhost:3000/callback"},
		"sub":               {"u-9"},
	}
	rec := do(t, srv, fakebackend.RouteOAuthAuthorize+"?"+q.Encode(), "")
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "localhost:3000", loc.Host)
	require.Equal(t, "/profile", loc.Query().Get("state"))

	tok := loc.Query().Get("token")
	require.NotEmpty(t, tok)
	require.Equal(t, http.StatusOK, do(t, srv, fakebackend.RouteOAuthValidate, "Bearer "+tok).Code)

	rec = do(t, srv, fakebackend.RouteOAuthAuthorize+"?redirect_base_url=relative", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCors(t *testing.T) {
	srv := fakebackend.New(fakebackend.WithAllowedOrigins("https://app.example"))

	req := httptest.NewRequest(http.MethodOptions, fakebackend.RouteHostValidate, nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodGet, fakebackend.RouteHealth, nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRoutes(t *testing.T) {
	srv := fakebackend.New(fakebackend.WithEnv("DEV"))
	require.Contains(t, srv.Routes(), "GET "+fakebackend.RouteOAuthValidate)
	require.Len(t, srv.Routes(), 4)
}
