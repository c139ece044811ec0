package auth

import "github.com/megayours/tma-session/session"

// State is the resolver lifecycle state.
type State int

const (
	StateIdle State = iota
	StateResolving
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Status is the snapshot the resolver publishes after every state change.
type Status struct {
	State             State
	IsAuthenticated   bool
	IsAuthenticating  bool
	IsHostEnvironment bool
	HasAttemptedAuth  bool
	Session           session.Session // nil unless authenticated
	Err               error           // Last failure, nil after success or logout
}

func newStatus(state State, isHost, attempted bool, s session.Session, err error) Status {
	return Status{
		State:             state,
		IsAuthenticated:   state == StateAuthenticated,
		IsAuthenticating:  state == StateResolving,
		IsHostEnvironment: isHost,
		HasAttemptedAuth:  attempted,
		Session:           s,
		Err:               err,
	}
}
