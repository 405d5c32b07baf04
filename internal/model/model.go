// Package model defines the domain types exchanged with the EventHub backend.
package model

import "time"

// Role is the authorisation level of a user account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the roles the backend issues.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	StatusUpcoming  EventStatus = "upcoming"
	StatusOngoing   EventStatus = "ongoing"
	StatusCompleted EventStatus = "completed"
	StatusCancelled EventStatus = "cancelled"
)

// EventStatuses lists every status in display order.
var EventStatuses = []EventStatus{StatusUpcoming, StatusOngoing, StatusCompleted, StatusCancelled}

// EventType classifies an event.
type EventType string

const (
	TypeConcert    EventType = "concert"
	TypeWorkshop   EventType = "workshop"
	TypeMeetup     EventType = "meetup"
	TypeConference EventType = "conference"
	TypeOther      EventType = "other"
)

// EventTypes lists every event type in display order.
var EventTypes = []EventType{TypeConcert, TypeWorkshop, TypeMeetup, TypeConference, TypeOther}

// Image is an uploaded asset hosted by the backend.
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id,omitempty"`
}

// User is the profile resolved from an auth token.
type User struct {
	ID             string `json:"_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           Role   `json:"role"`
	ProfilePicture *Image `json:"profilePicture,omitempty"`
	Age            int    `json:"age,omitempty"`
	Gender         string `json:"gender,omitempty"`
	DateOfBirth    string `json:"dateOfBirth,omitempty"`
}

// IsAdmin returns true for administrator accounts.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// FirstName returns the first word of the user's name.
func (u *User) FirstName() string {
	if u == nil {
		return ""
	}
	for i, r := range u.Name {
		if r == ' ' {
			return u.Name[:i]
		}
	}
	return u.Name
}

// Event represents a bookable event.
type Event struct {
	ID          string      `json:"_id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	StartDate   time.Time   `json:"startDate"`
	EndDate     time.Time   `json:"endDate"`
	Place       string      `json:"place"`
	Latitude    float64     `json:"latitude"`
	Longitude   float64     `json:"longitude"`
	Capacity    int         `json:"capacity"`
	Attendees   int         `json:"attendees"`
	Price       float64     `json:"price"`
	Presenter   string      `json:"presenter"`
	Type        EventType   `json:"type"`
	Status      EventStatus `json:"status"`
	IsFeatured  bool        `json:"isFeatured"`
	EventImage  *Image      `json:"eventImage,omitempty"`
}

// AvailableSeats returns the number of seats still open, never negative.
func (e *Event) AvailableSeats() int {
	if n := e.Capacity - e.Attendees; n > 0 {
		return n
	}
	return 0
}

// IsFull returns true when no seats remain.
func (e *Event) IsFull() bool {
	return e.AvailableSeats() == 0
}

// ImageURL returns the event image URL or "".
func (e *Event) ImageURL() string {
	if e.EventImage == nil {
		return ""
	}
	return e.EventImage.URL
}

// Booking is a confirmed reservation of one seat for the current user.
// The embedded Event is the snapshot the backend returned with the booking.
type Booking struct {
	ID          string    `json:"_id"`
	Event       Event     `json:"event"`
	BookingDate time.Time `json:"bookingDate"`
}

// Bookings is the cart: every booking held by the current user.
type Bookings []Booking

// Contains reports whether any booking references eventID.
func (b Bookings) Contains(eventID string) bool {
	_, ok := b.ByEvent(eventID)
	return ok
}

// ByEvent returns the booking for eventID, if any.
func (b Bookings) ByEvent(eventID string) (Booking, bool) {
	for _, booking := range b {
		if booking.Event.ID == eventID {
			return booking, true
		}
	}
	return Booking{}, false
}

// ByID returns the booking with the given id, if any.
func (b Bookings) ByID(id string) (Booking, bool) {
	for _, booking := range b {
		if booking.ID == id {
			return booking, true
		}
	}
	return Booking{}, false
}

// Total sums the price of every booked event.
func (b Bookings) Total() float64 {
	var total float64
	for _, booking := range b {
		total += booking.Event.Price
	}
	return total
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email" validate:"required,eventhub_email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginResult is the backend's answer to a successful login.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// SignupRequest is the payload for creating an account.
type SignupRequest struct {
	Name            string `json:"name" validate:"required,eventhub_name"`
	Email           string `json:"email" validate:"required,eventhub_email"`
	Password        string `json:"password" validate:"required,eventhub_password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	DateOfBirth     string `json:"dateOfBirth" validate:"required,adult"`
	Age             int    `json:"age"`
	Gender          string `json:"gender" validate:"required,oneof=male female"`
	ProfilePicture  string `json:"profilePicture,omitempty"`
}

// RoleChange reports the outcome of an administrator changing a user's role.
type RoleChange struct {
	OldRole Role `json:"oldRole"`
	NewRole Role `json:"newRole"`
}

// EventInput carries the fields of an admin create/update request. Image is
// the raw upload; nil keeps the current image on update.
type EventInput struct {
	Name        string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Place       string
	Latitude    float64
	Longitude   float64
	Capacity    int
	Price       float64
	Presenter   string
	Type        EventType
	Status      EventStatus
	IsFeatured  bool
	Image       []byte
	ImageName   string
}

// ErrorResponse is the JSON error envelope used by the backend.
type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
