// Package booking holds the signed-in user's bookings, the "cart".
//
// The list is never patched locally. Book and unbook flows finish with a
// Refresh, so the held list is always the last answer the backend gave.
package booking

import (
	"context"
	"sync"

	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/api"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/model"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/session"
	"go.uber.org/zap"
)

// Fetcher lists the bookings that token's user holds.
type Fetcher interface {
	Bookings(ctx context.Context, token string) (model.Bookings, error)
}

// Session is the part of the session store the booking store depends on.
type Session interface {
	Token() string
	Expire(ctx context.Context, token string)
	Subscribe(fn session.Listener) (cancel func())
}

// Store is the single source of truth for "is this event already booked".
type Store struct {
	fetcher Fetcher
	session Session
	logger  *zap.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup

	mu       sync.Mutex
	bookings model.Bookings
	inFlight int
}

// New returns a store that refreshes itself once every time the session
// goes from signed out to holding a token, and drops its list whenever the
// token is cleared or replaced. Call Close to stop it.
func New(fetcher Fetcher, sess Session, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		fetcher: fetcher,
		session: sess,
		logger:  logger.Named("booking"),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.unsubscribe = sess.Subscribe(s.onSessionChange)
	return s
}

func (s *Store) onSessionChange(prev, next session.State) {
	switch {
	case prev.Token == "" && next.Token != "":
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.Refresh(s.ctx)
		}()
	case prev.Token != "" && next.Token != prev.Token:
		// Signed out, or a different account: the held list is someone else's.
		s.mu.Lock()
		s.bookings = nil
		s.mu.Unlock()
	}
}

// Refresh replaces the held list with the backend's current answer. It is a
// no-op without a token. Failures are logged and keep the previous list; an
// authentication failure also expires the session.
func (s *Store) Refresh(ctx context.Context) {
	token := s.session.Token()
	if token == "" {
		s.logger.Debug("refresh skipped, no token")
		return
	}

	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	list, err := s.fetcher.Bookings(ctx, token)
	if err != nil {
		s.logger.Error("refresh bookings", zap.Error(err))
		if api.IsAuthFailure(err) {
			s.session.Expire(ctx, token)
		}
		return
	}

	// The answer belongs to token; drop it if the session moved on.
	if s.session.Token() != token {
		s.logger.Debug("discarding bookings for a replaced token")
		return
	}
	if list == nil {
		list = model.Bookings{}
	}
	s.mu.Lock()
	s.bookings = list
	s.mu.Unlock()
	s.logger.Debug("bookings refreshed", zap.Int("count", len(list)))
}

// Bookings returns a copy of the held list.
func (s *Store) Bookings() model.Bookings {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(model.Bookings, len(s.bookings))
	copy(out, s.bookings)
	return out
}

// Loading reports whether a refresh is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight > 0
}

// Contains reports whether eventID is booked in the held list.
func (s *Store) Contains(eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings.Contains(eventID)
}

// Total sums the prices of the held bookings.
func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings.Total()
}

// Wait blocks until background refreshes started so far have finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Close stops listening to the session, cancels background refreshes and
// waits for them.
func (s *Store) Close() {
	s.unsubscribe()
	s.cancel()
	s.wg.Wait()
}
