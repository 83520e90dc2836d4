// Package session holds the authenticated session: token, role and the scope
// that every role-specific object of a login is bound to.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/tripsync/core"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleDriver  Role = "driver"
	RoleParent  Role = "parent"
	RoleAdmin   Role = "admin"
)

// persisted keys
const (
	tokenKey = "token"
	roleKey  = "role"
)

var ErrUnknownRole = errors.New("unknown role")

// ParseRole validates a role string received from the API or from storage.
func ParseRole(s string) (Role, error) {
	switch r := Role(core.CleanString(s, true)); r {
	case RoleStudent, RoleDriver, RoleParent, RoleAdmin:
		return r, nil
	}
	return "", errors.Wrapf(ErrUnknownRole, "%q", s)
}

// Scope lives from login to logout. Its context is cancelled at logout, which stops
// everything bound to it (pollers, in-flight fetches).
type Scope struct {
	ID        string
	Role      Role
	CreatedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

func newScope(role Role) *Scope {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scope{
		ID:        uuid.New().String(),
		Role:      role,
		CreatedAt: time.Now().UTC(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (sc *Scope) Context() context.Context { return sc.ctx }
func (sc *Scope) Done() <-chan struct{}    { return sc.ctx.Done() }

// Active reports whether the scope has not been discarded yet.
func (sc *Scope) Active() bool { return sc.ctx.Err() == nil }

// Bind returns a context cancelled when either ctx or the scope ends.
func (sc *Scope) Bind(ctx context.Context) (context.Context, context.CancelFunc) {
	bound, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(sc.ctx, cancel)
	return bound, func() {
		stop()
		cancel()
	}
}

// Store is the session store. Token presence is what makes it authenticated.
type Store struct {
	kv     core.KeyValueStore
	logger core.Logger

	mu    sync.RWMutex
	token string
	role  Role
	scope *Scope
}

func NewStore(kv core.KeyValueStore, logger core.Logger) *Store {
	return &Store{kv: kv, logger: logger}
}

// Initialize rehydrates the session from persistent storage.
// It is best-effort: failures are logged and leave the session unauthenticated.
func (s *Store) Initialize(ctx context.Context) {
	token, err := s.kv.Get(ctx, tokenKey)
	if err != nil {
		if errors.Cause(err) != core.ErrKeyNotFound {
			s.logger.Warn("session: unable to load token", err)
		}
		return
	}
	rawRole, err := s.kv.Get(ctx, roleKey)
	if err != nil {
		if errors.Cause(err) != core.ErrKeyNotFound {
			s.logger.Warn("session: unable to load role", err)
		}
		return
	}
	role, err := ParseRole(rawRole)
	if err != nil {
		s.logger.Warn("session: ignoring persisted session", err)
		return
	}
	if token == "" {
		return
	}
	if expired(token, time.Now()) {
		s.logger.Info("session: persisted token expired, discarding it")
		if err := s.kv.Delete(ctx, tokenKey, roleKey); err != nil {
			s.logger.Warn("session: unable to clear expired credentials", err)
		}
		return
	}
	s.activate(token, role)
}

// expired peeks at the exp claim of token without verifying its signature.
// Tokens that are not JWTs are opaque to the client and never expire here.
func expired(token string, now time.Time) bool {
	var claims jwt.StandardClaims
	if _, _, err := new(jwt.Parser).ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != 0 && claims.ExpiresAt < now.Unix()
}

// Login persists the credentials then marks the session authenticated with a new Scope.
// Any previous scope is discarded.
func (s *Store) Login(ctx context.Context, token string, role Role) (*Scope, error) {
	if token == "" {
		return nil, core.NewValidationError(errors.New("token is required"))
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, tokenKey, token); err != nil {
		return nil, errors.Wrap(err, "persisting token")
	}
	if err := s.kv.Set(ctx, roleKey, string(role)); err != nil {
		_ = s.kv.Delete(ctx, tokenKey)
		return nil, errors.Wrap(err, "persisting role")
	}
	return s.activate(token, role), nil
}

func (s *Store) activate(token string, role Role) *Scope {
	sc := newScope(role)
	s.mu.Lock()
	old := s.scope
	s.token, s.role, s.scope = token, role, sc
	s.mu.Unlock()
	if old != nil {
		old.cancel()
	}
	return sc
}

// Logout discards the scope and the in-memory credentials, then clears the persisted ones.
// Storage errors are logged.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	sc := s.scope
	s.token, s.role, s.scope = "", "", nil
	s.mu.Unlock()

	if sc != nil {
		sc.cancel()
	}
	if err := s.kv.Delete(ctx, tokenKey, roleKey); err != nil {
		s.logger.Error("session: unable to clear persisted credentials", err)
	}
}

// Token returns the bearer token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) Role() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// Scope returns the scope of the current login, or nil when logged out.
func (s *Store) Scope() *Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scope
}
