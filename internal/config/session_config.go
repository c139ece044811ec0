package config

import (
	"errors"
	"time"
)

const (
	refreshMarginVar  = "TMA_REFRESH_MARGIN"
	credentialWaitVar = "TMA_CREDENTIAL_WAIT"
	pollIntervalVar   = "TMA_POLL_INTERVAL"
	sessionKeyVar     = "TMA_SESSION_KEY"
	tokenKeyVar       = "TMA_TOKEN_KEY"
)

type SessionConfig interface {
	GetRefreshMargin() time.Duration
	GetCredentialWait() time.Duration
	GetPollInterval() time.Duration
	GetSessionKey() string
	GetTokenKey() string
}

type Session struct {
	file *SessionFile
}

var _ SessionConfig = Session{}

func (s Session) GetRefreshMargin() time.Duration {
	return lookupDuration(refreshMarginVar, s.file.RefreshMargin, time.Hour)
}

func (s Session) GetCredentialWait() time.Duration {
	return lookupDuration(credentialWaitVar, s.file.CredentialWait, 30*time.Second)
}

func (s Session) GetPollInterval() time.Duration {
	return lookupDuration(pollIntervalVar, s.file.PollInterval, 100*time.Millisecond)
}

func (s Session) GetSessionKey() string {
	return lookup(sessionKeyVar, s.file.SessionKey, "tma_session")
}

func (s Session) GetTokenKey() string {
	return lookup(tokenKeyVar, s.file.TokenKey, "tma_bearer_token")
}

func (s Session) validate() error {
	return errors.Join(
		checkDuration(refreshMarginVar, s.file.RefreshMargin),
		checkDuration(credentialWaitVar, s.file.CredentialWait),
		checkDuration(pollIntervalVar, s.file.PollInterval),
	)
}
