package service

import (
	"context"
	"sync"

	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/api"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/events"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/model"
	"go.uber.org/zap"
)

// LoginPrompt is shown when a signed-out user tries to book.
const LoginPrompt = "Please login to book an event"

// Outcome is how a book or unbook attempt ended.
type Outcome int

const (
	// Succeeded: the backend accepted the request.
	Succeeded Outcome = iota
	// Failed: the backend rejected the request or could not be reached.
	Failed
	// LoginRequired: nobody is signed in; no request was made.
	LoginRequired
	// Declined: the user did not confirm an unbook; no request was made.
	Declined
	// Suppressed: a request for the same event was already in flight.
	Suppressed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case LoginRequired:
		return "login required"
	case Declined:
		return "declined"
	case Suppressed:
		return "suppressed"
	}
	return "unknown"
}

// Control labels.
const (
	LabelAlreadyBooked = "Already Booked"
	LabelFullyBooked   = "Completely Booked"
	LabelBooking       = "Booking..."
	LabelBookNow       = "Book Now"
)

// ControlState is how the book control for an event is rendered.
type ControlState struct {
	Disabled bool
	Label    string
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a func to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// BookingBackend is the part of the API client the booking flow uses.
type BookingBackend interface {
	Book(ctx context.Context, token, eventID string) error
	CancelBooking(ctx context.Context, token, bookingID string) error
}

// Bookings is the part of the booking store the flow uses.
type Bookings interface {
	Refresh(ctx context.Context)
	Contains(eventID string) bool
}

// BookingFlow runs book and unbook attempts. Each event has its own loading
// flag; attempts for different events run independently.
type BookingFlow struct {
	backend  BookingBackend
	session  Session
	bookings Bookings
	cache    Invalidator
	notifier Notifier
	logger   *zap.Logger

	mu      sync.Mutex
	loading map[string]bool
}

// NewBookingFlow constructs a BookingFlow with its dependencies.
func NewBookingFlow(backend BookingBackend, sess Session, bookings Bookings, cache Invalidator, n Notifier, logger *zap.Logger) *BookingFlow {
	return &BookingFlow{
		backend:  backend,
		session:  sess,
		bookings: bookings,
		cache:    cache,
		notifier: n,
		logger:   logger.Named("booking_flow"),
		loading:  make(map[string]bool),
	}
}

// Book reserves a seat at eventID for the signed-in user.
//
// On success the event cache is invalidated, a success notification is
// queued, the booking store is refreshed and only then is the loading flag
// cleared. On failure the server's message (or a generic one) is queued and
// nothing is invalidated or refreshed. The attempt runs to completion even if
// ctx is cancelled.
func (f *BookingFlow) Book(ctx context.Context, eventID string) (Outcome, error) {
	if f.session.User() == nil {
		return LoginRequired, nil
	}
	if !f.acquire(eventID) {
		f.logger.Debug("book suppressed, already in flight", zap.String("event_id", eventID))
		return Suppressed, nil
	}
	defer f.release(eventID)

	ctx = context.WithoutCancel(ctx)
	token := f.session.Token()
	if err := f.backend.Book(ctx, token, eventID); err != nil {
		f.fail(ctx, "book", eventID, token, err)
		return Failed, err
	}
	f.succeed(ctx, "book", eventID, "Success", "Event booked successfully")
	return Succeeded, nil
}

// Unbook cancels b after confirm approves it. Declining makes no request.
// The loading flag used is the one of the booked event.
func (f *BookingFlow) Unbook(ctx context.Context, b model.Booking, confirm Confirmer) (Outcome, error) {
	if f.session.User() == nil {
		return LoginRequired, nil
	}
	eventID := b.Event.ID
	if f.Loading(eventID) {
		return Suppressed, nil
	}
	prompt := "Do you want to cancel your booking"
	if b.Event.Name != "" {
		prompt += " for " + b.Event.Name
	}
	if confirm == nil || !confirm.Confirm(ctx, prompt+"?") {
		return Declined, nil
	}
	if !f.acquire(eventID) {
		return Suppressed, nil
	}
	defer f.release(eventID)

	ctx = context.WithoutCancel(ctx)
	token := f.session.Token()
	if err := f.backend.CancelBooking(ctx, token, b.ID); err != nil {
		f.fail(ctx, "unbook", eventID, token, err)
		return Failed, err
	}
	f.succeed(ctx, "unbook", eventID, "Success", "Event unbooked successfully")
	return Succeeded, nil
}

// Loading reports whether a request for eventID is in flight.
func (f *BookingFlow) Loading(eventID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading[eventID]
}

// Control returns how the book control for e renders. It is disabled when
// e is already booked, has no seats left, or has a request in flight.
func (f *BookingFlow) Control(e model.Event) ControlState {
	switch {
	case f.bookings.Contains(e.ID):
		return ControlState{Disabled: true, Label: LabelAlreadyBooked}
	case e.AvailableSeats() <= 0:
		return ControlState{Disabled: true, Label: LabelFullyBooked}
	case f.Loading(e.ID):
		return ControlState{Disabled: true, Label: LabelBooking}
	}
	return ControlState{Label: LabelBookNow}
}

func (f *BookingFlow) acquire(eventID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loading[eventID] {
		return false
	}
	f.loading[eventID] = true
	return true
}

func (f *BookingFlow) release(eventID string) {
	f.mu.Lock()
	delete(f.loading, eventID)
	f.mu.Unlock()
}

func (f *BookingFlow) succeed(ctx context.Context, action, eventID, title, message string) {
	if err := f.cache.Invalidate(ctx, events.EventsKey); err != nil {
		f.logger.Warn("invalidate events", zap.Error(err))
	}
	f.notifier.Success(title, message)
	f.bookings.Refresh(ctx)
	f.logger.Info(action+" succeeded", zap.String("event_id", eventID))
}

func (f *BookingFlow) fail(ctx context.Context, action, eventID, token string, err error) {
	f.logger.Info(action+" failed", zap.String("event_id", eventID), zap.Error(err))
	if expireOnAuthFailure(ctx, err, token, f.session, f.notifier) {
		return
	}
	f.notifier.Error("Error", api.Message(err, api.GenericMessage))
}
