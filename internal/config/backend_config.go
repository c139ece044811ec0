package config

import (
	"net/url"
	"time"

	"github.com/megayours/tma-session/internal/errors"
)

const (
	backendURLVar        = "TMA_BACKEND_URL"
	hostValidatePathVar  = "TMA_HOST_VALIDATE_PATH"
	oauthValidatePathVar = "TMA_OAUTH_VALIDATE_PATH"
	hostSchemeVar        = "TMA_HOST_SCHEME"
	validationTimeoutVar = "TMA_VALIDATION_TIMEOUT"
)

type BackendConfig interface {
	GetBaseURL() string
	GetHostValidatePath() string
	GetOAuthValidatePath() string
	GetHostScheme() string
	GetValidationTimeout() time.Duration
}

type Backend struct {
	file *BackendFile
}

var _ BackendConfig = Backend{}

// GetBaseURL returns the backend serving both validation endpoints
func (b Backend) GetBaseURL() string {
	return lookup(backendURLVar, b.file.BaseURL, "http://localhost:8080")
}

func (b Backend) GetHostValidatePath() string {
	return lookup(hostValidatePathVar, b.file.HostValidatePath, "/auth/validate")
}

func (b Backend) GetOAuthValidatePath() string {
	return lookup(oauthValidatePathVar, b.file.OAuthValidatePath, "/auth/oauth/validate")
}

func (b Backend) GetHostScheme() string {
	return lookup(hostSchemeVar, b.file.HostScheme, "tma")
}

func (b Backend) GetValidationTimeout() time.Duration {
	return lookupDuration(validationTimeoutVar, b.file.ValidationTimeout, 15*time.Second)
}

func (b Backend) validate() error {
	u, err := url.Parse(b.GetBaseURL())
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Wrapf(errors.ErrInvalidBaseURL, "%s=%q", backendURLVar, b.GetBaseURL())
	}
	return checkDuration(validationTimeoutVar, b.file.ValidationTimeout)
}

func checkDuration(envVar, fileValue string) error {
	value := lookup(envVar, fileValue, "")
	if d, err := parseDuration(value); err != nil || d < 0 {
		return errors.Wrapf(errors.ErrInvalidDuration, "%s=%q", envVar, value)
	}
	return nil
}
