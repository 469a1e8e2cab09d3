package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"local-auth/internal/domain"
	"local-auth/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that no record matches the email and password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserAlreadyExists is returned when registering an email that is already taken.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrStorage wraps any failure to read, decode or write persisted state.
	ErrStorage = errors.New("storage failure")
)

// Authenticator is the set of operations the auth store exposes to its consumers.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (domain.User, error)
	Register(ctx context.Context, name, email, password string) (domain.User, error)
	Logout(ctx context.Context)
	CurrentUser() (domain.User, bool)
	Subscribe(fn func(*domain.User)) (cancel func())
}

// AuthStore holds the current session and writes every change through to storage
// before updating memory. Operations are serialized.
type AuthStore struct {
	creds    repository.CredentialRepository
	sessions repository.SessionRepository
	logger   *logrus.Logger

	mu   sync.Mutex
	user *domain.User

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(*domain.User)
}

// NewAuthStore builds a store and restores the persisted session. Failing to load it
// leaves the store logged out.
func NewAuthStore(ctx context.Context, creds repository.CredentialRepository, sessions repository.SessionRepository, logger *logrus.Logger) *AuthStore {
	if logger == nil {
		logger = logrus.New()
	}
	s := &AuthStore{
		creds:    creds,
		sessions: sessions,
		logger:   logger,
		subs:     make(map[int]func(*domain.User)),
	}

	user, err := sessions.Load(ctx)
	switch {
	case err == nil:
		s.user = user
		logger.WithField("email", user.Email).Debug("restored session")
	case errors.Is(err, repository.ErrNotFound):
	default:
		logger.WithError(err).Warn("ignoring unreadable session")
	}
	return s
}

func (s *AuthStore) Login(ctx context.Context, email, password string) (domain.User, error) {
	s.mu.Lock()
	user, err := s.login(ctx, email, password)
	s.mu.Unlock()
	if err != nil {
		return domain.User{}, err
	}
	s.notify(&user)
	return user, nil
}

func (s *AuthStore) login(ctx context.Context, email, password string) (domain.User, error) {
	creds, err := s.creds.List(ctx)
	if err != nil {
		s.logger.WithError(err).Debug("login: read credentials")
		return domain.User{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	for _, c := range creds {
		if !domain.SameEmail(c.Email, email) || c.Password != password {
			continue
		}
		user := c.Public()
		if err := s.sessions.Save(ctx, user); err != nil {
			s.logger.WithError(err).Debug("login: write session")
			return domain.User{}, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		s.user = &user
		return user, nil
	}
	return domain.User{}, ErrInvalidCredentials
}

func (s *AuthStore) Register(ctx context.Context, name, email, password string) (domain.User, error) {
	s.mu.Lock()
	user, err := s.register(ctx, name, email, password)
	s.mu.Unlock()
	if err != nil {
		return domain.User{}, err
	}
	s.notify(&user)
	return user, nil
}

func (s *AuthStore) register(ctx context.Context, name, email, password string) (domain.User, error) {
	creds, err := s.creds.List(ctx)
	if err != nil {
		s.logger.WithError(err).Debug("register: read credentials")
		return domain.User{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	for _, c := range creds {
		if domain.SameEmail(c.Email, email) {
			return domain.User{}, ErrUserAlreadyExists
		}
	}

	creds = append(creds, domain.Credential{Name: name, Email: email, Password: password})
	if err := s.creds.SaveAll(ctx, creds); err != nil {
		s.logger.WithError(err).Debug("register: write credentials")
		return domain.User{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	// The record is durable from here on; a failed session write is recovered by logging in.
	user := domain.User{Name: name, Email: email}
	if err := s.sessions.Save(ctx, user); err != nil {
		s.logger.WithError(err).WithField("email", email).Warn("register: user stored without session")
		return domain.User{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	s.user = &user
	return user, nil
}

// Logout always ends the in-memory session, even if the persisted copy could not be removed.
func (s *AuthStore) Logout(ctx context.Context) {
	s.mu.Lock()
	if err := s.sessions.Clear(ctx); err != nil {
		s.logger.WithError(err).Warn("logout: remove session")
	}
	s.user = nil
	s.mu.Unlock()

	s.notify(nil)
}

func (s *AuthStore) CurrentUser() (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

// Subscribe registers fn to be called with the new session after every login,
// register or logout. fn receives nil on logout. It runs after the store is
// unlocked, so it may read the store.
func (s *AuthStore) Subscribe(fn func(*domain.User)) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *AuthStore) notify(user *domain.User) {
	s.subMu.Lock()
	fns := make([]func(*domain.User), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		if user == nil {
			fn(nil)
			continue
		}
		u := *user
		fn(&u)
	}
}

var _ Authenticator = (*AuthStore)(nil)
