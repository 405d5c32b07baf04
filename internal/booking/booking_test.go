package booking

import (
	"context"
	"net/http"
	"testing"

	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/api"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/backendtest"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/model"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/repository"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/session"
	"go.uber.org/zap/zaptest"
)

var bookingsRoute = backendtest.Route(http.MethodGet, "/book")

type fixture struct {
	backend *backendtest.Server
	client  *api.Client
	session *session.Store
	store   *Store
	user    model.User
	token   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := backendtest.New(t)
	client, err := api.NewClient(api.ClientConfig{BaseURL: backend.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	logger := zaptest.NewLogger(t)
	sess := session.New(client, repository.NewMemoryTokenRepository(), logger)
	store := New(client, sess, logger)
	t.Cleanup(store.Close)
	user, token := backend.AddUser(model.User{Name: "Ada Lovelace", Email: "ada@example.com"}, "Secret#123")
	return &fixture{backend: backend, client: client, session: sess, store: store, user: user, token: token}
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	if err := f.session.SetToken(context.Background(), f.token); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}
	f.store.Wait()
}

func TestAutoRefreshOnLogin(t *testing.T) {
	f := newFixture(t)
	event := f.backend.AddEvent(model.Event{Name: "Go meetup", Capacity: 10, Price: 15})
	if err := f.client.Book(context.Background(), f.token, event.ID); err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	f.login(t)

	if !f.store.Contains(event.ID) {
		t.Fatalf("Bookings() = %+v, want event %s", f.store.Bookings(), event.ID)
	}
	if got := f.backend.Calls(bookingsRoute); got != 1 {
		t.Fatalf("bookings calls = %d, want 1", got)
	}
	if f.store.Total() != 15 {
		t.Fatalf("Total() = %v, want 15", f.store.Total())
	}
}

func TestNoAutoRefreshOnTokenSwap(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	_, other := f.backend.AddUser(model.User{Name: "Grace Hopper", Email: "grace@example.com"}, "Secret#123")

	if err := f.session.SetToken(context.Background(), other); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}
	f.store.Wait()
	if got := f.backend.Calls(bookingsRoute); got != 1 {
		t.Fatalf("bookings calls = %d, want 1 (present to present must not refresh)", got)
	}
}

func TestTokenSwapDropsPreviousUsersList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.backend.AddEvent(model.Event{Name: "Go meetup", Capacity: 10})
	if err := f.client.Book(ctx, f.token, event.ID); err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	f.login(t)
	if !f.store.Contains(event.ID) {
		t.Fatal("booking missing after login")
	}

	_, other := f.backend.AddUser(model.User{Name: "Grace Hopper", Email: "grace@example.com"}, "Secret#123")
	if err := f.session.SetToken(ctx, other); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}
	f.store.Wait()

	if f.store.Contains(event.ID) || len(f.store.Bookings()) != 0 {
		t.Fatalf("Bookings() = %+v after switching accounts, want empty", f.store.Bookings())
	}
}

func TestRefreshWithoutTokenIsNoop(t *testing.T) {
	f := newFixture(t)
	f.store.Refresh(context.Background())
	if got := f.backend.Calls(bookingsRoute); got != 0 {
		t.Fatalf("bookings calls = %d, want 0", got)
	}
}

func TestRefreshFailureKeepsList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.backend.AddEvent(model.Event{Name: "Go meetup", Capacity: 10})
	if err := f.client.Book(ctx, f.token, event.ID); err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	f.login(t)

	f.backend.Fail(bookingsRoute, http.StatusInternalServerError, model.ErrorResponse{Message: "db down"})
	f.store.Refresh(ctx)

	if !f.store.Contains(event.ID) {
		t.Fatal("failed refresh dropped the previous list")
	}
	if f.store.Loading() {
		t.Fatal("Loading() stuck true after failure")
	}
	if f.session.Token() == "" {
		t.Fatal("a server error must not sign the user out")
	}
}

func TestRefreshAuthFailureExpiresSession(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	f.backend.ExpireToken(f.token)
	f.store.Refresh(context.Background())

	if f.session.Token() != "" {
		t.Fatal("session survived a jwt expired answer")
	}
	if len(f.store.Bookings()) != 0 {
		t.Fatal("bookings kept after the session expired")
	}
}

func TestLogoutClearsList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.backend.AddEvent(model.Event{Name: "Go meetup", Capacity: 10})
	if err := f.client.Book(ctx, f.token, event.ID); err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	f.login(t)

	if err := f.session.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if f.store.Contains(event.ID) {
		t.Fatal("bookings survived logout")
	}
}
