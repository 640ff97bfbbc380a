// Package session holds the signed-in user for the PollSphere client.
//
// A Store is created once and handed to every view that needs the current
// user. Only Login, Register and Logout change the record; everything else
// reads a copy.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pollsphere/pollsphere/internal/model"
)

// StorageKey is the durable-storage key holding the serialized user record.
const StorageKey = "pollUser"

// API is the slice of the backend client the Store uses.
type API interface {
	Login(ctx context.Context, email, password string) (*model.User, error)
	Register(ctx context.Context, username, email, password string) (*model.User, error)
	// SetToken makes later requests carry the signed-in user's token.
	SetToken(token string)
}

type Store struct {
	api     API
	storage Storage
	logger  *slog.Logger

	mu      sync.RWMutex
	user    *model.User
	loading bool
}

// New returns a Store that reports Loading until Restore has run.
func New(api API, storage Storage, logger *slog.Logger) *Store {
	return &Store{
		api:     api,
		storage: storage,
		logger:  logger,
		loading: true,
	}
}

// Restore loads a previously saved user record, once, before the first view
// is shown. A missing record leaves the store anonymous. An unreadable one is
// discarded and logged, since the user can simply sign in again.
func (s *Store) Restore() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.loading = false }()

	raw, ok, err := s.storage.Get(StorageKey)
	if err != nil {
		return fmt.Errorf("session: restoring: %w", err)
	}
	if !ok {
		return nil
	}

	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.ID == "" {
		s.logger.Warn("discarding unreadable saved session", slog.Any("error", err))
		if err := s.storage.Delete(StorageKey); err != nil {
			s.logger.Error("failed to clear saved session", slog.String("error", err.Error()))
		}
		return nil
	}

	s.user = &user
	s.api.SetToken(user.Token)
	return nil
}

// Loading reports whether Restore has not run yet.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// User returns a copy of the current record, or nil when signed out.
func (s *Store) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Login signs in and remembers the returned record. Backend errors are
// returned as they are; nothing is retried.
func (s *Store) Login(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.remember(user)
	return s.User(), nil
}

// Register creates an account and remembers the returned record.
func (s *Store) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	user, err := s.api.Register(ctx, username, email, password)
	if err != nil {
		return nil, err
	}
	s.remember(user)
	return s.User(), nil
}

// Logout forgets the user locally. The backend is not contacted.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = nil
	s.api.SetToken("")
	if err := s.storage.Delete(StorageKey); err != nil {
		s.logger.Error("failed to clear saved session", slog.String("error", err.Error()))
	}
}

// remember stores user in memory and durable storage. A storage failure only
// costs the next start its restore, so it is logged rather than returned.
func (s *Store) remember(user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := *user
	s.user = &u
	s.loading = false
	s.api.SetToken(u.Token)

	data, err := json.Marshal(u)
	if err != nil {
		s.logger.Error("failed to encode session", slog.String("error", err.Error()))
		return
	}
	if err := s.storage.Set(StorageKey, string(data)); err != nil {
		s.logger.Error("failed to save session", slog.String("error", err.Error()))
	}
}
