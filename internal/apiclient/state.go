package apiclient

import "sync"

// AuthState is where the client is in an authentication failure episode
type AuthState int

const (
	// StateIdle means no refresh or redirect is underway
	StateIdle AuthState = iota
	// StateRefreshing means a token refresh is in flight
	StateRefreshing
	// StateRefreshFailed means the episode's refresh failed. No new refresh
	// starts until Reset; the redirect may still begin.
	StateRefreshFailed
	// StateRedirecting means the session was ended and the redirect to
	// sign-in has been triggered
	StateRedirecting
)

func (s AuthState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRefreshing:
		return "refreshing"
	case StateRefreshFailed:
		return "refresh_failed"
	case StateRedirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

// State guards refresh and redirect so each happens at most once per
// episode. The zero value is Idle.
type State struct {
	mu    sync.Mutex
	state AuthState
}

// Current returns the current state
func (s *State) Current() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TryBeginRefresh moves Idle to Refreshing
func (s *State) TryBeginRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return false
	}
	s.state = StateRefreshing
	return true
}

// EndRefresh finishes a refresh. Success returns to Idle, failure moves
// to RefreshFailed.
func (s *State) EndRefresh(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRefreshing {
		return
	}
	if ok {
		s.state = StateIdle
	} else {
		s.state = StateRefreshFailed
	}
}

// CancelRefresh returns a refresh that was not part of a failure episode
// to Idle, whatever its outcome
func (s *State) CancelRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRefreshing {
		s.state = StateIdle
	}
}

// TryBeginRedirect moves to Redirecting unless a redirect already started
func (s *State) TryBeginRedirect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRedirecting {
		return false
	}
	s.state = StateRedirecting
	return true
}

// Reset returns to Idle
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
}
