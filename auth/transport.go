package auth

import (
	"context"
	"net/http"
)

// Transport adds the session's Authorization header to outgoing requests
// and logs out when the backend answers 401 for that session.
type Transport struct {
	Base     http.RoundTripper
	Resolver *Resolver
}

// Transport returns a RoundTripper bound to r. A nil base uses
// http.DefaultTransport.
func (r *Resolver) Transport(base http.RoundTripper) *Transport {
	return &Transport{Base: base, Resolver: r}
}

// Client returns an http.Client using r.Transport(nil).
func (r *Resolver) Client() *http.Client {
	return &http.Client{Transport: r.Transport(nil)}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	st := t.Resolver.Status()
	if st.Session == nil {
		return t.base().RoundTrip(req)
	}

	authToken := st.Session.GetIdentity().AuthToken
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", authToken)

	resp, err := t.base().RoundTrip(out)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// Only end the session the request was sent with.
	current := t.Resolver.Status()
	if current.Session != nil && current.Session.GetIdentity().AuthToken == authToken {
		t.Resolver.logger.Info().
			Str("provider", current.Session.Provider().String()).
			Int("status_code", resp.StatusCode).
			Msg("backend rejected session, logging out")
		if lerr := t.Resolver.Logout(context.WithoutCancel(req.Context())); lerr != nil {
			t.Resolver.logger.Warn().Err(lerr).Msg("logout after 401 failed")
		}
	}
	return resp, nil
}
