package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/backendtest"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/model"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{BaseURL: baseURL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"valid", "http://localhost:5000/api", false},
		{"empty", "", true},
		{"no scheme", "localhost:5000", true},
		{"unparseable", "://bad", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(ClientConfig{BaseURL: tt.baseURL})
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewClient(%q) error = %v, wantErr %v", tt.baseURL, err, tt.wantErr)
			}
		})
	}
}

func TestRegistryCoversContract(t *testing.T) {
	want := map[string]struct {
		method string
		path   string
		auth   AuthLevel
	}{
		Signup:       {"POST", "/auth/signup", AuthNone},
		Login:        {"POST", "/auth/login", AuthNone},
		UserData:     {"GET", "/auth/user-data", AuthToken},
		AllUsers:     {"GET", "/auth/all-users", AuthAdmin},
		ChangeRole:   {"PATCH", "/auth/change-role/{id}", AuthAdmin},
		Events:       {"GET", "/events/events", AuthNone},
		AllEvents:    {"GET", "/events/all-events", AuthAdmin},
		EventDetails: {"GET", "/events/event-details/{id}", AuthNone},
		AddEvent:     {"POST", "/events/add-event", AuthAdmin},
		UpdateEvent:  {"PATCH", "/events/update-event/{id}", AuthAdmin},
		DeleteEvent:  {"DELETE", "/events/delete-event/{id}", AuthAdmin},
		BookEvent:    {"POST", "/book/{eventId}", AuthToken},
		ListBookings: {"GET", "/book", AuthToken},
		CancelBook:   {"DELETE", "/book/{bookingId}", AuthToken},
	}
	if len(Registry) != len(want) {
		t.Fatalf("registry has %d endpoints, want %d", len(Registry), len(want))
	}
	for name, w := range want {
		ep, ok := Lookup(name)
		if !ok {
			t.Errorf("endpoint %s not registered", name)
			continue
		}
		if ep.Method != w.method || ep.Path != w.path || ep.Auth != w.auth {
			t.Errorf("%s = %s %s (%s), want %s %s (%s)", name, ep.Method, ep.Path, ep.Auth, w.method, w.path, w.auth)
		}
	}
	if got := len(ByResource(ResourceBooking)); got != 3 {
		t.Errorf("booking resource has %d endpoints, want 3", got)
	}
}

func TestEndpointExpand(t *testing.T) {
	ep, _ := Lookup(BookEvent)

	path, err := ep.Expand("abc/def")
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if path != "/book/abc%2Fdef" {
		t.Errorf("path = %q, want escaped segment", path)
	}
	if _, err := ep.Expand(); err == nil {
		t.Error("expected error for missing parameter")
	}
	if _, err := ep.Expand(""); err == nil {
		t.Error("expected error for empty parameter")
	}
	if _, err := ep.Expand("a", "b"); err == nil {
		t.Error("expected error for extra parameter")
	}
}

func TestAuthHeaderUsesCustomScheme(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(AuthHeader)
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("request carried no X-Request-ID")
		}
		json.NewEncoder(w).Encode(map[string]any{"bookings": []any{}})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if _, err := client.Bookings(context.Background(), "tok123"); err != nil {
		t.Fatalf("Bookings failed: %v", err)
	}
	if got != "Areeb tok123" {
		t.Errorf("auth header = %q, want %q", got, "Areeb tok123")
	}
}

func TestAuthenticatedEndpointWithoutToken(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.Book(context.Background(), "", "evt")
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("error = %v, want ErrNoToken", err)
	}
	if calls != 0 {
		t.Errorf("backend received %d calls, want 0", calls)
	}
}

func TestErrorDecoding(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantAuth    bool
	}{
		{"message", 400, `{"message":"Event is full"}`, "Event is full", false},
		{"expired details", 500, `{"message":"Error","details":"jwt expired"}`, "Error", true},
		{"nested error", 403, `{"error":{"message":"nope","details":"jwt expired"}}`, "nope", true},
		{"string error", 404, `{"error":"missing"}`, "missing", false},
		{"unauthorized", 401, `{}`, GenericMessage, true},
		{"plain text", 502, `bad gateway`, "bad gateway", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := newTestClient(t, server.URL).Book(context.Background(), "tok", "evt")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if got := Message(err, GenericMessage); got != tt.wantMessage {
				t.Errorf("Message = %q, want %q", got, tt.wantMessage)
			}
			if IsAuthFailure(err) != tt.wantAuth {
				t.Errorf("IsAuthFailure = %v, want %v", IsAuthFailure(err), tt.wantAuth)
			}
		})
	}
}

func TestMessageFallback(t *testing.T) {
	if got := Message(errors.New("dial tcp: refused"), GenericMessage); got != GenericMessage {
		t.Errorf("Message = %q, want fallback", got)
	}
}

func TestClientAgainstBackend(t *testing.T) {
	backend := backendtest.New(t)
	client := newTestClient(t, backend.URL)
	ctx := context.Background()

	admin, adminToken := backend.AddUser(model.User{Name: "Ada Admin", Email: "ada@example.com", Role: model.RoleAdmin}, "Secret#123")
	event := backend.AddEvent(model.Event{
		Name:      "Go Meetup",
		Capacity:  2,
		StartDate: time.Date(2026, 11, 1, 18, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 11, 1, 21, 0, 0, 0, time.UTC),
	})

	t.Run("login and resolve", func(t *testing.T) {
		result, err := client.Login(ctx, model.Credentials{Email: "ada@example.com", Password: "Secret#123"})
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		user, err := client.UserData(ctx, result.Token)
		if err != nil {
			t.Fatalf("UserData failed: %v", err)
		}
		if user.ID != admin.ID || !user.IsAdmin() {
			t.Errorf("resolved user = %+v, want admin %s", user, admin.ID)
		}
	})

	t.Run("book list cancel", func(t *testing.T) {
		if err := client.Book(ctx, adminToken, event.ID); err != nil {
			t.Fatalf("Book failed: %v", err)
		}
		bookings, err := client.Bookings(ctx, adminToken)
		if err != nil {
			t.Fatalf("Bookings failed: %v", err)
		}
		booking, ok := bookings.ByEvent(event.ID)
		if !ok {
			t.Fatalf("bookings %+v do not include event %s", bookings, event.ID)
		}
		if err := client.Book(ctx, adminToken, event.ID); !IsStatus(err, http.StatusBadRequest) {
			t.Errorf("second Book error = %v, want 400", err)
		}
		if err := client.CancelBooking(ctx, adminToken, booking.ID); err != nil {
			t.Fatalf("CancelBooking failed: %v", err)
		}
		if n := backend.BookingCount(admin.ID); n != 0 {
			t.Errorf("backend holds %d bookings, want 0", n)
		}
	})

	t.Run("admin event crud", func(t *testing.T) {
		created, err := client.AddEvent(ctx, adminToken, model.EventInput{
			Name:      "Workshop",
			StartDate: time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 12, 1, 17, 0, 0, 0, time.UTC),
			Capacity:  20,
			Type:      model.TypeWorkshop,
			Status:    model.StatusUpcoming,
			Image:     []byte("png"),
			ImageName: "cover.png",
		})
		if err != nil {
			t.Fatalf("AddEvent failed: %v", err)
		}
		if created.ImageURL() == "" {
			t.Error("created event has no image")
		}
		updated, err := client.UpdateEvent(ctx, adminToken, created.ID, model.EventInput{
			Name:      "Workshop II",
			StartDate: created.StartDate,
			EndDate:   created.EndDate,
			Capacity:  30,
		})
		if err != nil {
			t.Fatalf("UpdateEvent failed: %v", err)
		}
		if updated.Name != "Workshop II" || updated.Capacity != 30 {
			t.Errorf("updated = %+v", updated)
		}
		if err := client.DeleteEvent(ctx, adminToken, created.ID); err != nil {
			t.Fatalf("DeleteEvent failed: %v", err)
		}
		if _, err := client.EventDetails(ctx, created.ID); !IsStatus(err, http.StatusNotFound) {
			t.Errorf("EventDetails after delete error = %v, want 404", err)
		}
	})

	t.Run("change role", func(t *testing.T) {
		other, _ := backend.AddUser(model.User{Name: "Bob", Email: "bob@example.com"}, "Secret#123")
		message, change, err := client.ChangeRole(ctx, adminToken, other.ID, model.RoleAdmin)
		if err != nil {
			t.Fatalf("ChangeRole failed: %v", err)
		}
		if change.OldRole != model.RoleUser || change.NewRole != model.RoleAdmin || message == "" {
			t.Errorf("ChangeRole = %q %+v", message, change)
		}
	})

	t.Run("non admin rejected", func(t *testing.T) {
		_, userToken := backend.AddUser(model.User{Name: "Carl", Email: "carl@example.com"}, "Secret#123")
		if _, err := client.AllUsers(ctx, userToken); !IsStatus(err, http.StatusForbidden) {
			t.Errorf("AllUsers error = %v, want 403", err)
		}
	})
}
