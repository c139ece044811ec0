package provider

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeout bounds every validation call.
	DefaultTimeout = 15 * time.Second

	DefaultHostValidatePath  = "/auth/validate"
	DefaultOAuthValidatePath = "/auth/oauth/validate"
	DefaultHostScheme        = "tma"

	maxBodyBytes = 1 << 20
)

type options struct {
	httpClient *http.Client
	logger     zerolog.Logger
	timeout    time.Duration
	path       string
	hostScheme string
}

// Option configures a validator.
type Option func(*options)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTimeout bounds each validation call. Non-positive values keep the
// default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithPath overrides the validation endpoint path.
func WithPath(path string) Option {
	return func(o *options) {
		if path != "" {
			o.path = path
		}
	}
}

// WithHostScheme sets the Authorization scheme HostShell sends. Ignored by
// ExternalOAuth, which always sends Bearer.
func WithHostScheme(scheme string) Option {
	return func(o *options) {
		if scheme != "" {
			o.hostScheme = scheme
		}
	}
}

func newOptions(defaultPath string, opts []Option) options {
	o := options{
		httpClient: http.DefaultClient,
		logger:     log.Logger,
		timeout:    DefaultTimeout,
		path:       defaultPath,
		hostScheme: DefaultHostScheme,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
