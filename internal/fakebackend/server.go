// Package fakebackend serves the two validation endpoints the provider
// validators call, plus a development authorize route. It backs the
// sessionctl fake-backend command and the package tests.
package fakebackend

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultSecret signs minted tokens when no secret is configured.
const DefaultSecret = "fake-backend-secret"

// User is the identity a validation endpoint answers with.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
}

type Server struct {
	env            string
	router         chi.Router
	routes         []string
	logger         zerolog.Logger
	secret         []byte
	hostScheme     string
	allowedOrigins map[string]struct{}
	nowTime        func() time.Time

	hostUsersLock sync.RWMutex
	hostUsers     map[string]User

	delay      atomic.Int64
	failStatus atomic.Int32

	calls map[string]*atomic.Int64
}

type Option func(*Server)

// WithSecret sets the HMAC secret used to mint and verify bearer tokens.
func WithSecret(secret []byte) Option {
	return func(s *Server) {
		if len(secret) > 0 {
			s.secret = secret
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithEnv enables request and route logging when env is "DEV".
func WithEnv(env string) Option {
	return func(s *Server) {
		s.env = env
	}
}

// WithHostScheme changes the Authorization scheme expected on the host
// validation route. The default is "tma".
func WithHostScheme(scheme string) Option {
	return func(s *Server) {
		if scheme != "" {
			s.hostScheme = scheme
		}
	}
}

// WithAllowedOrigins lists the origins that receive CORS headers.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		for _, o := range origins {
			s.allowedOrigins[o] = struct{}{}
		}
	}
}

func WithNowTime(nowTime func() time.Time) Option {
	return func(s *Server) {
		s.nowTime = nowTime
	}
}

// New builds the router. It is ready to serve once returned.
func New(opts ...Option) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		logger:         log.Logger,
		secret:         []byte(DefaultSecret),
		hostScheme:     "tma",
		allowedOrigins: make(map[string]struct{}),
		nowTime:        time.Now,
		hostUsers:      make(map[string]User),
		calls: map[string]*atomic.Int64{
			RouteHostValidate:   {},
			RouteOAuthValidate:  {},
			RouteOAuthAuthorize: {},
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) initRoutes() {
	s.router.Use(s.RecoverMiddleware, s.LoggingMiddleware, s.CorsMiddleware, s.counterMiddleware)

	s.registerRoute(http.MethodGet, RouteHealth, s.HealthHandler())
	s.registerRoute(http.MethodGet, RouteHostValidate, s.HostValidateHandler())
	s.registerRoute(http.MethodGet, RouteOAuthValidate, s.OAuthValidateHandler())
	s.registerRoute(http.MethodGet, RouteOAuthAuthorize, s.AuthorizeHandler())
}

func (s *Server) registerRoute(method, pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, method+" "+pattern)
	s.router.Method(method, pattern, handler)
}

// Routes lists the registered "METHOD /path" patterns.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		s.logRoute(parts[0], parts[1])
	}
}

func (s *Server) logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	s.logger.Info().Msgf("[%s] %s", color+paddedMethod+ResetColor, path)
}

// AddHostUser registers the identity returned for an exact host init payload.
func (s *Server) AddHostUser(initData string, user User) {
	s.hostUsersLock.Lock()
	defer s.hostUsersLock.Unlock()
	s.hostUsers[initData] = user
}

// SetDelay makes every validation response wait d before answering.
func (s *Server) SetDelay(d time.Duration) {
	s.delay.Store(int64(d))
}

// FailWith forces every validation route to answer status. Zero restores
// normal behaviour.
func (s *Server) FailWith(status int) {
	s.failStatus.Store(int32(status))
}

// Calls returns how many requests reached route.
func (s *Server) Calls(route string) int64 {
	c, ok := s.calls[route]
	if !ok {
		return 0
	}
	return c.Load()
}

// TotalValidations sums the calls to both validation routes.
func (s *Server) TotalValidations() int64 {
	return s.Calls(RouteHostValidate) + s.Calls(RouteOAuthValidate)
}
