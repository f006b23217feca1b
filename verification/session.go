package verification

import (
	"sync"
	"time"
)

// State is the position of a Session in its lifecycle.
type State int

const (
	// StateStarted is the state between the preconditions passing and the challenge being delivered.
	StateStarted State = iota
	// StateAwaitingResponse is the state while the member's answer is awaited.
	StateAwaitingResponse
	// StateSucceeded is the terminal state of a correct answer whose role was granted.
	StateSucceeded
	// StateFailedWrongAnswer is the terminal state of an answer that did not match.
	StateFailedWrongAnswer
	// StateFailedTimeout is the terminal state of a session that received no answer in time.
	StateFailedTimeout
	// StateFailedRoleGrant is the terminal state of a correct answer whose role could not be granted.
	StateFailedRoleGrant
	// StateCanceled is the terminal state of a session interrupted by shutdown.
	StateCanceled
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateStarted:
		return "started"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateSucceeded:
		return "succeeded"
	case StateFailedWrongAnswer:
		return "failed_wrong_answer"
	case StateFailedTimeout:
		return "failed_timeout"
	case StateFailedRoleGrant:
		return "failed_role_grant"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends a session.
func (s State) Terminal() bool {
	return s >= StateSucceeded
}

// Request identifies who asked for verification and where.
type Request struct {
	GuildID   string
	ChannelID string
	UserID    string
}

// Session is a single verification attempt.
type Session struct {
	ID        string
	GuildID   string
	ChannelID string
	UserID    string
	RoleID    string
	StartedAt time.Time
	Deadline  time.Time

	challenge *Challenge

	mu    sync.Mutex
	state State
	err   error
	done  chan struct{}
}

func newSession(id string, req Request, config *GuildConfig) *Session {
	return &Session{
		ID:        id,
		GuildID:   req.GuildID,
		ChannelID: config.ChannelID,
		UserID:    req.UserID,
		RoleID:    config.RoleID,
		StartedAt: time.Now(),
		state:     StateStarted,
		done:      make(chan struct{}),
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the reason the session failed.
// It is nil while the session is unresolved or when it succeeded.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done returns a channel that is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session reaches a terminal state and returns it.
func (s *Session) Wait() State {
	<-s.done
	return s.State()
}

func (s *Session) await(deadline time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAwaitingResponse
	s.Deadline = deadline
}

// resolve moves the session to a terminal state.
// Only the first call has any effect; it returns false for later calls.
func (s *Session) resolve(state State, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return false
	}
	s.state = state
	s.err = err
	close(s.done)
	return true
}
