package auth

import (
	"errors"
	"time"

	"github.com/megayours/tma-session/session"
)

// Pass outcomes reported to a Recorder.
const (
	OutcomeAuthenticated   = "authenticated"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeCancelled       = "cancelled"
)

// Validation results reported to a Recorder.
const (
	ResultSuccess      = "success"
	ResultRejected     = "rejected"
	ResultTransient    = "transient"
	ResultNoCredential = "no_credential"
)

// Recorder receives resolver events, typically to export them as metrics.
type Recorder interface {
	PassCompleted(outcome string)
	CacheHit(provider session.Provider)
	Validation(provider session.Provider, result string, elapsed time.Duration)
	Logout()
}

type nopRecorder struct{}

func (nopRecorder) PassCompleted(string)                               {}
func (nopRecorder) CacheHit(session.Provider)                          {}
func (nopRecorder) Validation(session.Provider, string, time.Duration) {}
func (nopRecorder) Logout()                                            {}

func validationResult(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case session.IsRejected(err):
		return ResultRejected
	case errors.Is(err, session.ErrNoCredentialAvailable):
		return ResultNoCredential
	default:
		return ResultTransient
	}
}
