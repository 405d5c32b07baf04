// Package session holds the storefront's belief about who is signed in.
//
// The Store owns the persisted auth token: it is the only component that
// reads or writes the TokenRepository. Every token change triggers exactly
// one profile resolution; a failed resolution purges the token so the user
// has to log in again. There are no retries.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/model"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ErrTokenExpired is the resolution failure for a token whose exp claim has
// already passed. No network call is made for such tokens.
var ErrTokenExpired = errors.New("session: token expired")

// Resolver exchanges a token for the profile it belongs to.
type Resolver interface {
	UserData(ctx context.Context, token string) (*model.User, error)
}

// State is a point-in-time copy of the session.
type State struct {
	Token string
	User  *model.User
}

// Authenticated reports whether a profile has been resolved for the token.
func (s State) Authenticated() bool { return s.Token != "" && s.User != nil }

// Listener is called after every state change with the previous and the new
// state. Listeners run outside the store's lock and may call back into it.
type Listener func(prev, next State)

// Store is the single process-wide session. Create it with New and hand the
// same pointer to every consumer.
type Store struct {
	resolver Resolver
	tokens   repository.TokenRepository
	logger   *zap.Logger
	now      func() time.Time

	// persistMu orders repository writes with the state change they belong
	// to. Taken before mu, never while holding it.
	persistMu sync.Mutex

	mu        sync.Mutex
	state     State
	gen       uint64
	listeners map[int]Listener
	nextID    int
	closed    bool
}

// New returns an empty store. Call Initialize to load the persisted token.
func New(resolver Resolver, tokens repository.TokenRepository, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		resolver:  resolver,
		tokens:    tokens,
		logger:    logger.Named("session"),
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
}

// Initialize reads the persisted token, if any, and resolves it. Only a
// repository read error is returned; a failed resolution leaves the store
// signed out.
func (s *Store) Initialize(ctx context.Context) error {
	token, err := s.tokens.Load(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Debug("no persisted token")
			return nil
		}
		return fmt.Errorf("load persisted token: %w", err)
	}
	gen, apply := s.install(State{Token: token})
	apply()
	s.resolve(ctx, token, gen)
	return nil
}

// SetToken replaces the session token and resolves the profile for it. An
// empty token signs out: the persisted token and the user are cleared.
func (s *Store) SetToken(ctx context.Context, token string) error {
	s.persistMu.Lock()
	if token == "" {
		err := s.tokens.Clear(ctx)
		_, apply := s.install(State{})
		s.persistMu.Unlock()
		apply()
		if err != nil {
			return fmt.Errorf("clear persisted token: %w", err)
		}
		return nil
	}
	if err := s.tokens.Save(ctx, token); err != nil {
		s.persistMu.Unlock()
		return fmt.Errorf("persist token: %w", err)
	}
	gen, apply := s.install(State{Token: token})
	s.persistMu.Unlock()
	apply()
	s.resolve(ctx, token, gen)
	return nil
}

// Logout is SetToken with an empty token.
func (s *Store) Logout(ctx context.Context) error {
	return s.SetToken(ctx, "")
}

// Expire signs out after another component saw the backend reject token.
// It is a no-op when the session has already moved on to a different token.
func (s *Store) Expire(ctx context.Context, token string) {
	s.mu.Lock()
	current := s.state.Token
	s.mu.Unlock()
	if token == "" || current != token {
		return
	}
	s.logger.Info("session expired by backend")
	if err := s.SetToken(ctx, ""); err != nil {
		s.logger.Error("clear expired session", zap.Error(err))
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// Token returns the current token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Token
}

// User returns a copy of the resolved profile, or nil.
func (s *Store) User() *model.User {
	return s.Snapshot().User
}

// Subscribe registers fn for state changes and returns a func that removes it.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close drops every listener. The store keeps answering reads afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.listeners = make(map[int]Listener)
}

// install swaps in next and bumps the generation. The returned func notifies
// listeners and must be called with no store lock held.
func (s *Store) install(next State) (uint64, func()) {
	s.mu.Lock()
	prev := s.copyLocked()
	s.state = next
	s.gen++
	gen := s.gen
	listeners := s.listenersLocked()
	s.mu.Unlock()

	return gen, func() { notify(listeners, prev, next) }
}

// resolve exchanges token for a profile. Results for a generation that has
// since been replaced are dropped.
func (s *Store) resolve(ctx context.Context, token string, gen uint64) {
	var (
		user *model.User
		err  error
	)
	if tokenExpired(token, s.now()) {
		err = ErrTokenExpired
	} else {
		user, err = s.resolver.UserData(ctx, token)
		if err == nil && user == nil {
			err = errors.New("session: empty profile")
		}
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.logger.Debug("discarding stale resolution", zap.Uint64("generation", gen))
		return
	}
	prev := s.copyLocked()
	if err != nil {
		s.state = State{}
	} else {
		u := *user
		s.state.User = &u
	}
	s.gen++
	installed := s.gen
	next := s.copyLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("token resolution failed, purging token", zap.Error(err))
		s.purge(ctx, installed)
	} else {
		s.logger.Info("session resolved",
			zap.String("user_id", user.ID),
			zap.String("role", string(user.Role)),
		)
	}

	// A newer transition already told listeners where the session went.
	s.mu.Lock()
	current := s.gen
	s.mu.Unlock()
	if current != installed {
		return
	}
	notify(listeners, prev, next)
}

// purge clears the persisted token unless a SetToken has run since the
// failed resolution installed generation gen.
func (s *Store) purge(ctx context.Context, gen uint64) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	current := s.gen
	s.mu.Unlock()
	if current != gen {
		s.logger.Debug("token replaced before purge, keeping it", zap.Uint64("generation", gen))
		return
	}
	if err := s.tokens.Clear(ctx); err != nil {
		s.logger.Error("purge persisted token", zap.Error(err))
	}
}

func (s *Store) copyLocked() State {
	out := State{Token: s.state.Token}
	if s.state.User != nil {
		u := *s.state.User
		out.User = &u
	}
	return out
}

func (s *Store) listenersLocked() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []Listener, prev, next State) {
	for _, fn := range listeners {
		fn(prev, next)
	}
}

// tokenExpired reports whether token is a JWT whose exp claim is not after
// now. The signature is not checked; opaque tokens are left to the backend.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}
