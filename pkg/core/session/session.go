// Package session keeps the OpenSubtitles login token alive across calls and
// across process restarts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	coreErrors "github.com/MeetLima/osdbinfos/pkg/core/errors"
	"github.com/MeetLima/osdbinfos/pkg/core/store"
	log "github.com/sirupsen/logrus"
)

// TokenLifetime is how long a token stays usable after the last successful call.
const TokenLifetime = 14 * time.Minute

// Session is the persisted login state.
type Session struct {
	Token    string    `json:"token,omitempty"`
	IssuedAt time.Time `json:"issued_at,omitempty"`
}

// Valid reports whether the token can still be used at now.
func (s Session) Valid(now time.Time) bool {
	if s.Token == "" || s.IssuedAt.IsZero() {
		return false
	}
	return now.Sub(s.IssuedAt) < TokenLifetime
}

// LoginFunc performs a login and returns the new token. An empty token means
// the service allowed anonymous access.
type LoginFunc func(ctx context.Context) (string, error)

// State owns one Session together with the slot it is persisted to.
type State struct {
	mu      sync.Mutex
	current Session
	store   store.Store
	key     string
	now     func() time.Time
	logger  *log.Logger
}

// NewState creates a State. st may be nil, in which case nothing is persisted.
func NewState(st store.Store, key string, now func() time.Time, logger *log.Logger) *State {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &State{store: st, key: key, now: now, logger: logger}
}

// Key returns the store key of this session.
func (s *State) Key() string { return s.key }

// Current returns a copy of the session.
func (s *State) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// IsValid reports whether the current token is usable without a new login.
func (s *State) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Valid(s.now())
}

// TokenArg is the first argument of authenticated calls: the token, or false
// when there is none.
func (s *State) TokenArg() interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.Token == "" {
		return false
	}
	return s.current.Token
}

// Refresh logs in if the session is not valid. On failure the session is left
// untouched; a login timeout is reported as ErrSessionTimeout.
func (s *State) Refresh(ctx context.Context, login LoginFunc) error {
	if s.IsValid() {
		s.logger.Debug("Token has not expired yet, no need to log in")
		return nil
	}

	s.logger.Debug("Logging in")
	token, err := login(ctx)
	if err != nil {
		if errors.Is(err, coreErrors.ErrTimeout) && !errors.Is(err, coreErrors.ErrSessionTimeout) {
			return fmt.Errorf("%w: %w", coreErrors.ErrSessionTimeout, err)
		}
		return err
	}
	if token == "" {
		s.logger.Warn("Login returned no token, continuing without one")
		return nil
	}

	s.mu.Lock()
	s.current = Session{Token: token, IssuedAt: s.now()}
	s.mu.Unlock()
	return nil
}

// Touch records a successful call made at t, extending the token lifetime.
func (s *State) Touch(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.Token != "" {
		s.current.IssuedAt = t
	}
}

// Invalidate drops the in-memory token so the next Refresh logs in again.
// Persisted state is not changed.
func (s *State) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Session{}
}

// Load reads the persisted session. Missing or corrupt state is treated as no
// session and never returned as an error.
func (s *State) Load(ctx context.Context) {
	if s.store == nil {
		return
	}
	data, err := s.store.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.WithError(err).Debug("Could not read session state")
		}
		return
	}

	var loaded Session
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.WithError(err).Debug("Could not deserialize session state")
		return
	}

	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()
	s.logger.WithFields(log.Fields{"issued_at": loaded.IssuedAt, "valid": loaded.Valid(s.now())}).Debug("Session state loaded")
}

// Persist writes the current session to the store.
func (s *State) Persist(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	data, err := json.Marshal(s.Current())
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}
	if err := s.store.Set(ctx, s.key, data, 0); err != nil {
		return fmt.Errorf("failed to store session state: %w", err)
	}
	return nil
}
