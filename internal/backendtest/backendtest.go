// Package backendtest runs an in-memory stand-in for the EventHub backend
// REST surface. It enforces the same rules the real backend does (seat
// capacity, one booking per user and event, admin-only routes) so storefront
// components can be exercised end to end in tests.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Scheme is the auth scheme the fake backend accepts.
const Scheme = "Areeb"

type userRecord struct {
	user     model.User
	password string
}

type bookingRecord struct {
	id      string
	eventID string
	userID  string
	date    time.Time
}

type failure struct {
	status int
	body   any
}

// Server is a running fake backend. The zero value is not usable; call New.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	events   []*model.Event
	users    map[string]*userRecord
	tokens   map[string]string // token -> user id
	expired  map[string]bool
	bookings []*bookingRecord
	calls    map[string]int
	failures map[string]failure
	gates    map[string]chan struct{}
	entered  map[string]chan struct{}
}

// New starts a fake backend that is closed when t finishes. The API base
// URL for clients is s.URL.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:    make(map[string]*userRecord),
		tokens:   make(map[string]string),
		expired:  make(map[string]bool),
		calls:    make(map[string]int),
		failures: make(map[string]failure),
		gates:    make(map[string]chan struct{}),
		entered:  make(map[string]chan struct{}),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	s.handle(r, "POST", "/auth/signup", s.signup)
	s.handle(r, "POST", "/auth/login", s.login)
	s.handle(r, "GET", "/auth/user-data", s.authed(false, s.userData))
	s.handle(r, "GET", "/auth/all-users", s.authed(true, s.allUsers))
	s.handle(r, "PATCH", "/auth/change-role/{id}", s.authed(true, s.changeRole))
	s.handle(r, "GET", "/events/events", s.listEvents)
	s.handle(r, "GET", "/events/all-events", s.authed(true, func(w http.ResponseWriter, r *http.Request, _ *model.User) {
		s.listEvents(w, r)
	}))
	s.handle(r, "GET", "/events/event-details/{id}", s.eventDetails)
	s.handle(r, "POST", "/events/add-event", s.authed(true, s.addEvent))
	s.handle(r, "PATCH", "/events/update-event/{id}", s.authed(true, s.updateEvent))
	s.handle(r, "DELETE", "/events/delete-event/{id}", s.authed(true, s.deleteEvent))
	s.handle(r, "POST", "/book/{id}", s.authed(false, s.book))
	s.handle(r, "GET", "/book", s.authed(false, s.listBookings))
	s.handle(r, "DELETE", "/book/{id}", s.authed(false, s.cancelBooking))
	return r
}

// ─── Test controls ────────────────────────────────────────────────────────────

// Route names a registered route as "METHOD /pattern", e.g. "POST /book/{id}".
func Route(method, pattern string) string { return method + " " + pattern }

// Calls returns how many requests reached route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Fail makes every following request to route answer with status and body.
func (s *Server) Fail(route string, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, body: body}
}

// Recover removes a failure installed with Fail.
func (s *Server) Recover(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, route)
}

// Hold blocks requests to route until the returned release func is called.
// The returned channel receives once each time a request starts waiting.
func (s *Server) Hold(route string) (entered <-chan struct{}, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gate := make(chan struct{})
	in := make(chan struct{}, 16)
	s.gates[route] = gate
	s.entered[route] = in
	var once sync.Once
	return in, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gates, route)
			delete(s.entered, route)
			s.mu.Unlock()
			close(gate)
		})
	}
}

// AddEvent stores e, assigning an ObjectID when e.ID is empty.
func (s *Server) AddEvent(e model.Event) model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = primitive.NewObjectID().Hex()
	}
	stored := e
	s.events = append(s.events, &stored)
	return stored
}

// Event returns a copy of the stored event.
func (s *Server) Event(id string) (model.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.findEvent(id); e != nil {
		return *e, true
	}
	return model.Event{}, false
}

// AddUser stores a user with password and returns a valid token for it.
func (s *Server) AddUser(u model.User, password string) (model.User, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = primitive.NewObjectID().Hex()
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	s.users[u.ID] = &userRecord{user: u, password: password}
	return u, s.issueLocked(u.ID)
}

// ExpireToken makes token fail with the backend's "jwt expired" answer.
func (s *Server) ExpireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired[token] = true
}

// BookingCount returns how many bookings userID holds.
func (s *Server) BookingCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.bookings {
		if b.userID == userID {
			n++
		}
	}
	return n
}

// User returns a copy of the stored user.
func (s *Server) User(id string) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return model.User{}, false
	}
	return rec.user, true
}

// ─── Plumbing ─────────────────────────────────────────────────────────────────

func (s *Server) handle(r chi.Router, method, pattern string, h http.HandlerFunc) {
	route := Route(method, pattern)
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		s.calls[route]++
		f, failing := s.failures[route]
		gate := s.gates[route]
		in := s.entered[route]
		s.mu.Unlock()

		if gate != nil {
			in <- struct{}{}
			<-gate
		}
		if failing {
			writeJSON(w, f.status, f.body)
			return
		}
		h(w, req)
	}))
}

type authedHandler func(w http.ResponseWriter, r *http.Request, user *model.User)

func (s *Server) authed(adminOnly bool, h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheme, token, ok := strings.Cut(r.Header.Get("token"), " ")
		if !ok || scheme != Scheme || token == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "missing token")
			return
		}
		s.mu.Lock()
		expired := s.expired[token]
		userID, known := s.tokens[token]
		var user model.User
		if rec, ok := s.users[userID]; ok {
			user = rec.user
		} else {
			known = false
		}
		s.mu.Unlock()

		switch {
		case expired:
			writeError(w, http.StatusUnauthorized, "Session expired", "jwt expired")
			return
		case !known:
			writeError(w, http.StatusUnauthorized, "Unauthorized", "invalid token")
			return
		case adminOnly && user.Role != model.RoleAdmin:
			writeError(w, http.StatusForbidden, "Access denied", "")
			return
		}
		h(w, r, &user)
	}
}

func (s *Server) issueLocked(userID string) string {
	token := uuid.NewString()
	s.tokens[token] = userID
	return token
}

func (s *Server) findEvent(id string) *model.Event {
	for _, e := range s.events {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, model.ErrorResponse{Message: msg, Details: details})
}
