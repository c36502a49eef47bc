// Package auth holds the client's session: the stored token and the user it
// resolves to. One Session is created per running client and passed to every
// screen that needs to know who is logged in.
package auth

import (
	"context"
	"sync"

	"go-todo-web/internal/client/tokenstore"
	"go-todo-web/internal/logging"
	"go-todo-web/internal/models"
)

type State int

const (
	StateInitializing State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// API is the subset of the API client the session depends on.
type API interface {
	RegisterUser(ctx context.Context, in models.UserRegisterRequest) (*models.User, error)
	LoginUser(ctx context.Context, email, password string) (*models.TokenResponse, error)
	GetCurrentUser(ctx context.Context) (*models.User, error)
}

type Session struct {
	api    API
	tokens tokenstore.Store
	log    logging.Logger

	initOnce sync.Once
	ready    chan struct{}

	mu      sync.RWMutex
	state   State
	user    *models.User
	logins  int // Login calls started
	subs    map[int]func(*models.User)
	nextSub int
}

func NewSession(api API, tokens tokenstore.Store, log logging.Logger) *Session {
	return &Session{
		api:    api,
		tokens: tokens,
		log:    log,
		ready:  make(chan struct{}),
		subs:   make(map[int]func(*models.User)),
	}
}

// Initialize resolves the user from any stored token. A missing, invalid or
// expired token is not an error: the token is cleared and the session becomes
// unauthenticated. Only the first call does any work. A Login started while
// the check is in flight takes precedence over its result.
func (s *Session) Initialize(ctx context.Context) {
	s.initOnce.Do(func() {
		defer close(s.ready)

		s.mu.RLock()
		logins := s.logins
		s.mu.RUnlock()

		u, err := s.api.GetCurrentUser(ctx)

		s.mu.Lock()
		if s.state != StateInitializing || s.logins != logins {
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.log.Info(ctx, "no usable stored session", "error", err)
			// Login bumps logins under mu before storing a token
			if clearErr := s.tokens.Clear(ctx); clearErr != nil {
				s.log.Warn(ctx, "failed to clear stored token", "error", clearErr)
			}
			s.state = StateUnauthenticated
			s.mu.Unlock()
			return
		}
		s.state, s.user = StateAuthenticated, u
		s.mu.Unlock()
		s.notify(u)
	})
}

// Loading reports whether the startup check is still running.
func (s *Session) Loading() bool {
	select {
	case <-s.ready:
		return false
	default:
		return true
	}
}

// Wait blocks until Initialize has finished or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns a copy of the current user, or nil when nobody is logged in.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Login exchanges credentials for a token, then resolves the user. Errors
// from the server are returned unmodified. If the credentials are rejected
// the previous session, if any, is kept. If the new token cannot be resolved
// it is cleared and the session ends.
func (s *Session) Login(ctx context.Context, email, password string) error {
	s.mu.Lock()
	s.logins++
	s.mu.Unlock()

	if _, err := s.api.LoginUser(ctx, email, password); err != nil {
		s.settleUnauthenticated()
		return err
	}

	u, err := s.api.GetCurrentUser(ctx)
	if err != nil {
		if clearErr := s.tokens.Clear(ctx); clearErr != nil {
			s.log.Warn(ctx, "failed to clear stored token", "error", clearErr)
		}
		s.mu.Lock()
		wasLoggedIn := s.user != nil
		s.state, s.user = StateUnauthenticated, nil
		s.mu.Unlock()
		if wasLoggedIn {
			s.notify(nil)
		}
		return err
	}

	s.mu.Lock()
	s.state, s.user = StateAuthenticated, u
	s.mu.Unlock()
	s.log.Info(ctx, "logged in", "user_id", u.ID)
	s.notify(u)
	return nil
}

func (s *Session) settleUnauthenticated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateInitializing {
		s.state = StateUnauthenticated
	}
}

// Logout clears the token and the user. Calling it when already logged out
// is a no-op apart from clearing the store again.
func (s *Session) Logout(ctx context.Context) {
	if err := s.tokens.Clear(ctx); err != nil {
		s.log.Warn(ctx, "failed to clear stored token", "error", err)
	}

	s.mu.Lock()
	wasLoggedIn := s.user != nil
	s.state, s.user = StateUnauthenticated, nil
	s.mu.Unlock()

	if wasLoggedIn {
		s.log.Info(ctx, "logged out")
		s.notify(nil)
	}
}

// Register creates an account. It does not log the new user in.
func (s *Session) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	return s.api.RegisterUser(ctx, models.UserRegisterRequest{Email: email, Name: name, Password: password})
}

// Subscribe registers fn to be called with the new user (nil on logout)
// whenever the session's user changes. The returned func unsubscribes.
func (s *Session) Subscribe(fn func(*models.User)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Session) notify(u *models.User) {
	s.mu.RLock()
	fns := make([]func(*models.User), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		if u == nil {
			fn(nil)
			continue
		}
		cp := *u
		fn(&cp)
	}
}
