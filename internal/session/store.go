package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-console/internal/config"
	"github.com/spec-kit/ticket-console/internal/domain"
	"github.com/spec-kit/ticket-console/internal/gateway"
)

// State describes where the session is in its lifecycle. Checking is a
// transient state while the freshness probe runs; consumers must not treat
// it as Anonymous or they will bounce an authenticated admin to login.
type State string

const (
	StateUnknown       State = "unknown"
	StateChecking      State = "checking"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

// Store holds the current authenticated identity. The opaque session
// credential is persisted to a file so a later console invocation resumes
// the session, the way the browser client kept it in local storage.
type Store struct {
	gw     gateway.Gateway
	file   string
	logger *zap.Logger

	mu    sync.Mutex
	state State
	token string
	user  *domain.User
}

type persistedSession struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// NewStore builds a session store and rehydrates any persisted credential.
// The credential is attached to the gateway immediately but stays in state
// Unknown until a freshness check confirms it.
func NewStore(gw gateway.Gateway, cfg config.SessionConfig, logger *zap.Logger) *Store {
	s := &Store{gw: gw, file: cfg.File, logger: logger, state: StateUnknown}
	s.restore()
	return s
}

// Login exchanges credentials for a session. Prior state is untouched on
// failure: a logged-out store stays logged out.
func (s *Store) Login(ctx context.Context, email, password string) (*domain.User, error) {
	creds, err := s.gw.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.token = creds.Token
	user := creds.User
	s.user = &user
	s.state = StateAuthenticated
	s.mu.Unlock()

	s.gw.SetToken(creds.Token)
	s.persist(creds.Token, creds.User)
	s.logger.Info("logged in", zap.String("user", creds.User.Username))
	return &user, nil
}

// Logout invalidates the session. The remote call is best effort; local
// identity is always cleared.
func (s *Store) Logout(ctx context.Context) {
	if err := s.gw.Logout(ctx); err != nil {
		s.logger.Warn("remote logout failed", zap.Error(err))
	}
	s.purge()
}

// CurrentUser returns the cached identity, or nil when anonymous.
func (s *Store) CurrentUser() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// State reports the current session state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsAuthenticated reports whether a credential is present and still
// accepted by the gateway. Any failed freshness check purges the credential
// so the next call answers instantly; the user logs in again.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	s.mu.Lock()
	if s.token == "" {
		s.state = StateAnonymous
		s.mu.Unlock()
		return false
	}
	s.state = StateChecking
	s.mu.Unlock()

	user, err := s.gw.CurrentUser(ctx)
	if err != nil {
		s.logger.Info("session freshness check failed, purging credential", zap.Error(err))
		s.purge()
		return false
	}

	s.mu.Lock()
	s.user = user
	s.state = StateAuthenticated
	s.mu.Unlock()
	return true
}

func (s *Store) purge() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.state = StateAnonymous
	s.mu.Unlock()

	s.gw.SetToken("")
	if s.file != "" {
		if err := os.Remove(s.file); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove session file", zap.Error(err))
		}
	}
}

func (s *Store) restore() {
	if s.file == "" {
		return
	}
	raw, err := os.ReadFile(s.file)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read session file", zap.Error(err))
		}
		return
	}
	var saved persistedSession
	if err := json.Unmarshal(raw, &saved); err != nil || saved.Token == "" {
		s.logger.Warn("discarding malformed session file")
		_ = os.Remove(s.file)
		return
	}
	s.token = saved.Token
	user := saved.User
	s.user = &user
	s.gw.SetToken(saved.Token)
}

func (s *Store) persist(token string, user domain.User) {
	if s.file == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.file), 0o700); err != nil {
		s.logger.Warn("failed to create session directory", zap.Error(err))
		return
	}
	raw, err := json.Marshal(persistedSession{Token: token, User: user})
	if err != nil {
		s.logger.Warn("failed to encode session", zap.Error(err))
		return
	}
	if err := os.WriteFile(s.file, raw, 0o600); err != nil {
		s.logger.Warn("failed to write session file", zap.Error(err))
	}
}
