package fakebackend

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// HostValidateHandler accepts "Authorization: <scheme> <initData>". A
// payload registered with AddHostUser answers with that user; otherwise the
// payload is read as a query string whose "user" parameter holds the
// identity JSON, the way the host shell encodes it.
func (s *Server) HostValidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initData, ok := credentialFromHeader(r, s.hostScheme)
		if !ok {
			http.Error(w, "missing host credential", http.StatusUnauthorized)
			return
		}

		s.hostUsersLock.RLock()
		user, registered := s.hostUsers[initData]
		s.hostUsersLock.RUnlock()
		if registered {
			writeJSON(w, http.StatusOK, user)
			return
		}

		raw, ok := userFromInitData(initData)
		if !ok {
			http.Error(w, "unknown host credential", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
	}
}

// OAuthValidateHandler accepts "Authorization: Bearer <token>" for tokens
// minted by this server that have not expired.
func (s *Server) OAuthValidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := credentialFromHeader(r, "Bearer")
		if !ok {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		user, err := s.verify(raw)
		if err != nil {
			s.logger.Debug().Err(err).Msg("bearer token rejected")
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// AuthorizeHandler stands in for the remote authorize step during local
// development. It mints a token for the "sub" parameter (default
// "dev-user") and redirects to redirect_base_url with token and state.
func (s *Server) AuthorizeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		redirectBase, err := url.Parse(q.Get("redirect_base_url"))
		if err != nil || redirectBase.Scheme == "" || redirectBase.Host == "" {
			http.Error(w, "redirect_base_url must be an absolute URL", http.StatusBadRequest)
			return
		}

		sub := q.Get("sub")
		if sub == "" {
			sub = "dev-user"
		}
		name := q.Get("name")
		if name == "" {
			name = "developer"
		}
		ttl := time.Hour
		if v := q.Get("ttl"); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				ttl = d
			}
		}

		tok, err := s.Mint(sub, name, ttl)
		if err != nil {
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}

		back := redirectBase.Query()
		back.Set("token", tok)
		if state := q.Get("state"); state != "" {
			back.Set("state", state)
		}
		redirectBase.RawQuery = back.Encode()
		http.Redirect(w, r, redirectBase.String(), http.StatusFound)
	}
}

func credentialFromHeader(r *http.Request, scheme string) (string, bool) {
	header := r.Header.Get("Authorization")
	prefix, value, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(prefix, scheme) {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func userFromInitData(initData string) (json.RawMessage, bool) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, false
	}
	raw := values.Get("user")
	if raw == "" {
		return nil, false
	}

	var probe map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, false
	}
	if _, ok := probe["id"]; !ok {
		return nil, false
	}
	return json.RawMessage(raw), true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
