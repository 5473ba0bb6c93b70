package auth

// State is the session manager's lifecycle state.
type State int

const (
	// StateAnonymous means no session exists.
	StateAnonymous State = iota
	// StateAuthenticating means a login or signup is in flight.
	StateAuthenticating
	// StateAuthenticated means a valid session is active.
	StateAuthenticated
	// StateExpiring means a restored session is being re-confirmed.
	StateExpiring
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateExpiring:
		return "expiring"
	}
	return "unknown"
}
