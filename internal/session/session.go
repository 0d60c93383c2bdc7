// Package session holds the respondent's credential and cached profile on
// the client, with an explicit lifecycle instead of ambient auth state.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

type State int

const (
	Anonymous State = iota
	Authenticated
	Expired
	LoggedOut
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	case LoggedOut:
		return "logged-out"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Profile is the minimal user profile cached alongside the token.
type Profile struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Session is safe for concurrent use; network completions may expire it
// from another goroutine.
type Session struct {
	mu      sync.RWMutex
	store   Store
	state   State
	token   string
	profile Profile
}

func New(store Store) *Session {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Session{store: store, state: Anonymous}
}

// Restore loads a persisted credential, if any.
func (s *Session) Restore(ctx context.Context) error {
	token, err := s.store.Get(ctx, keyToken)
	if err != nil {
		return err
	}
	if len(token) == 0 {
		return nil
	}

	var profile Profile
	if raw, err := s.store.Get(ctx, keyProfile); err != nil {
		return err
	} else if len(raw) > 0 {
		if err := json.Unmarshal(raw, &profile); err != nil {
			return fmt.Errorf("decode cached profile: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Authenticated
	s.token = string(token)
	s.profile = profile
	return nil
}

// Authenticate records a freshly issued credential and persists it.
func (s *Session) Authenticate(ctx context.Context, token string, profile Profile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := s.store.Set(ctx, keyToken, []byte(token)); err != nil {
		return err
	}
	if err := s.store.Set(ctx, keyProfile, raw); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Authenticated
	s.token = token
	s.profile = profile
	return nil
}

// Expire drops the credential after the server rejected it.
func (s *Session) Expire(ctx context.Context) error {
	return s.end(ctx, Expired)
}

// Logout drops the credential at the user's request.
func (s *Session) Logout(ctx context.Context) error {
	return s.end(ctx, LoggedOut)
}

func (s *Session) end(ctx context.Context, next State) error {
	s.mu.Lock()
	s.state = next
	s.token = ""
	s.profile = Profile{}
	s.mu.Unlock()

	return s.store.Clear(ctx)
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Token returns the bearer credential when authenticated.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != Authenticated {
		return "", false
	}
	return s.token, true
}

func (s *Session) Profile() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

func (s *Session) IsAuthenticated() bool {
	return s.State() == Authenticated
}
