package backendtest

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ─── Auth ─────────────────────────────────────────────────────────────────────

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Validation failed", "name, email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.users {
		if rec.user.Email == req.Email {
			writeError(w, http.StatusConflict, "User already exists", "email already registered")
			return
		}
	}
	u := model.User{
		ID:          primitive.NewObjectID().Hex(),
		Name:        req.Name,
		Email:       req.Email,
		Role:        model.RoleUser,
		Age:         req.Age,
		Gender:      req.Gender,
		DateOfBirth: req.DateOfBirth,
	}
	s.users[u.ID] = &userRecord{user: u, password: req.Password}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "User created successfully", "user": u})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.users {
		if rec.user.Email == creds.Email && rec.password == creds.Password {
			token := s.issueLocked(rec.user.ID)
			writeJSON(w, http.StatusOK, model.LoginResult{Token: token, User: rec.user})
			return
		}
	}
	writeError(w, http.StatusBadRequest, "Invalid email or password", "")
}

func (s *Server) userData(w http.ResponseWriter, r *http.Request, user *model.User) {
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) allUsers(w http.ResponseWriter, r *http.Request, _ *model.User) {
	s.mu.Lock()
	users := make([]model.User, 0, len(s.users))
	for _, rec := range s.users {
		users = append(users, rec.user)
	}
	s.mu.Unlock()
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) changeRole(w http.ResponseWriter, r *http.Request, _ *model.User) {
	var req struct {
		Role model.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Role.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid role", "")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found", "")
		return
	}
	old := rec.user.Role
	rec.user.Role = req.Role
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "User role updated successfully",
		"data":    model.RoleChange{OldRole: old, NewRole: req.Role},
	})
}

// ─── Events ───────────────────────────────────────────────────────────────────

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	events := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		events = append(events, *e)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) eventDetails(w http.ResponseWriter, r *http.Request) {
	e, ok := s.Event(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Event not found", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event": e})
}

func (s *Server) addEvent(w http.ResponseWriter, r *http.Request, _ *model.User) {
	e, ok := parseEventForm(w, r, model.Event{})
	if !ok {
		return
	}
	stored := s.AddEvent(e)
	writeJSON(w, http.StatusCreated, map[string]any{"status": "success", "data": map[string]any{"event": stored}})
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request, _ *model.User) {
	s.mu.Lock()
	current := s.findEvent(chi.URLParam(r, "id"))
	var base model.Event
	if current != nil {
		base = *current
	}
	s.mu.Unlock()
	if current == nil {
		writeError(w, http.StatusNotFound, "Event not found", "")
		return
	}

	e, ok := parseEventForm(w, r, base)
	if !ok {
		return
	}
	s.mu.Lock()
	*current = e
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": map[string]any{"event": e}})
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request, _ *model.User) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.events {
		if e.ID == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Event not found", "")
}

func parseEventForm(w http.ResponseWriter, r *http.Request, e model.Event) (model.Event, bool) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form", err.Error())
		return e, false
	}
	e.Name = r.FormValue("name")
	e.Description = r.FormValue("description")
	e.Place = r.FormValue("place")
	e.Presenter = r.FormValue("presenter")
	e.Type = model.EventType(r.FormValue("type"))
	e.Status = model.EventStatus(r.FormValue("status"))
	e.IsFeatured = r.FormValue("isFeatured") == "true"
	e.Capacity, _ = strconv.Atoi(r.FormValue("capacity"))
	e.Price, _ = strconv.ParseFloat(r.FormValue("price"), 64)
	e.Latitude, _ = strconv.ParseFloat(r.FormValue("latitude"), 64)
	e.Longitude, _ = strconv.ParseFloat(r.FormValue("longitude"), 64)
	e.StartDate, _ = time.Parse(time.RFC3339, r.FormValue("startDate"))
	e.EndDate, _ = time.Parse(time.RFC3339, r.FormValue("endDate"))
	if _, header, err := r.FormFile("eventImage"); err == nil {
		e.EventImage = &model.Image{URL: "https://images.test/" + header.Filename, PublicID: uuid.NewString()}
	}
	if e.Name == "" || !e.EndDate.After(e.StartDate) {
		writeError(w, http.StatusBadRequest, "Validation failed", "name and a valid date range are required")
		return e, false
	}
	return e, true
}

// ─── Bookings ─────────────────────────────────────────────────────────────────

// book enforces capacity and one booking per (user, event), then records
// the booking and counts the attendee.
func (s *Server) book(w http.ResponseWriter, r *http.Request, user *model.User) {
	eventID := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.findEvent(eventID)
	if e == nil {
		writeError(w, http.StatusNotFound, "Event not found", "")
		return
	}
	for _, b := range s.bookings {
		if b.eventID == eventID && b.userID == user.ID {
			writeError(w, http.StatusBadRequest, "You have already booked this event", "")
			return
		}
	}
	if e.Attendees >= e.Capacity {
		writeError(w, http.StatusBadRequest, "Event is full", "")
		return
	}
	e.Attendees++
	b := &bookingRecord{
		id:      primitive.NewObjectID().Hex(),
		eventID: eventID,
		userID:  user.ID,
		date:    time.Now().UTC(),
	}
	s.bookings = append(s.bookings, b)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Event booked successfully", "booking": s.viewLocked(b)})
}

func (s *Server) listBookings(w http.ResponseWriter, r *http.Request, user *model.User) {
	s.mu.Lock()
	out := model.Bookings{}
	for _, b := range s.bookings {
		if b.userID == user.ID {
			out = append(out, s.viewLocked(b))
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"bookings": out})
}

func (s *Server) cancelBooking(w http.ResponseWriter, r *http.Request, user *model.User) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.bookings {
		if b.id != id {
			continue
		}
		if b.userID != user.ID {
			writeError(w, http.StatusForbidden, "Not your booking", "")
			return
		}
		if e := s.findEvent(b.eventID); e != nil && e.Attendees > 0 {
			e.Attendees--
		}
		s.bookings = append(s.bookings[:i], s.bookings[i+1:]...)
		writeJSON(w, http.StatusOK, map[string]any{"message": "Booking cancelled"})
		return
	}
	writeError(w, http.StatusNotFound, "Booking not found", "")
}

func (s *Server) viewLocked(b *bookingRecord) model.Booking {
	view := model.Booking{ID: b.id, BookingDate: b.date}
	if e := s.findEvent(b.eventID); e != nil {
		view.Event = *e
	} else {
		view.Event = model.Event{ID: b.eventID}
	}
	return view
}
