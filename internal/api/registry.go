// Package api describes the EventHub backend REST surface and provides a
// typed client for it.
//
// The registry is static: every endpoint the storefront may call is listed
// here with its method, path pattern and the credential it needs. The client
// never builds a URL that is not in the registry.
package api

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultAuthScheme is the literal prefixed to the token in the auth header.
// The backend does not accept the standard "Bearer" keyword.
const DefaultAuthScheme = "Areeb"

// AuthHeader is the request header that carries the scheme and token.
const AuthHeader = "token"

// Resource groups endpoints by backend router.
type Resource string

const (
	ResourceAuth    Resource = "auth"
	ResourceEvents  Resource = "events"
	ResourceBooking Resource = "booking"
)

// AuthLevel is the credential an endpoint requires.
type AuthLevel int

const (
	AuthNone AuthLevel = iota
	AuthToken
	AuthAdmin
)

func (a AuthLevel) String() string {
	switch a {
	case AuthNone:
		return "none"
	case AuthToken:
		return "token"
	case AuthAdmin:
		return "token (admin)"
	default:
		return fmt.Sprintf("AuthLevel(%d)", int(a))
	}
}

// Endpoint is one row of the contract.
type Endpoint struct {
	Resource  Resource
	Name      string
	Method    string
	Path      string // pattern; "{name}" segments are path parameters
	Auth      AuthLevel
	Multipart bool
}

// Endpoint names.
const (
	Signup       = "auth.signup"
	Login        = "auth.login"
	UserData     = "auth.userData"
	AllUsers     = "auth.allUsers"
	ChangeRole   = "auth.changeRole"
	Events       = "events.list"
	AllEvents    = "events.adminList"
	EventDetails = "events.details"
	AddEvent     = "events.add"
	UpdateEvent  = "events.update"
	DeleteEvent  = "events.delete"
	BookEvent    = "booking.create"
	ListBookings = "booking.list"
	CancelBook   = "booking.cancel"
)

// Registry is the full contract, in the order the backend documents it.
var Registry = []Endpoint{
	{ResourceAuth, Signup, "POST", "/auth/signup", AuthNone, false},
	{ResourceAuth, Login, "POST", "/auth/login", AuthNone, false},
	{ResourceAuth, UserData, "GET", "/auth/user-data", AuthToken, false},
	{ResourceAuth, AllUsers, "GET", "/auth/all-users", AuthAdmin, false},
	{ResourceAuth, ChangeRole, "PATCH", "/auth/change-role/{id}", AuthAdmin, false},
	{ResourceEvents, Events, "GET", "/events/events", AuthNone, false},
	{ResourceEvents, AllEvents, "GET", "/events/all-events", AuthAdmin, false},
	{ResourceEvents, EventDetails, "GET", "/events/event-details/{id}", AuthNone, false},
	{ResourceEvents, AddEvent, "POST", "/events/add-event", AuthAdmin, true},
	{ResourceEvents, UpdateEvent, "PATCH", "/events/update-event/{id}", AuthAdmin, true},
	{ResourceEvents, DeleteEvent, "DELETE", "/events/delete-event/{id}", AuthAdmin, false},
	{ResourceBooking, BookEvent, "POST", "/book/{eventId}", AuthToken, false},
	{ResourceBooking, ListBookings, "GET", "/book", AuthToken, false},
	{ResourceBooking, CancelBook, "DELETE", "/book/{bookingId}", AuthToken, false},
}

// Lookup returns the endpoint registered under name.
func Lookup(name string) (Endpoint, bool) {
	for _, ep := range Registry {
		if ep.Name == name {
			return ep, true
		}
	}
	return Endpoint{}, false
}

// ByResource returns the endpoints of one resource group.
func ByResource(r Resource) []Endpoint {
	var out []Endpoint
	for _, ep := range Registry {
		if ep.Resource == r {
			out = append(out, ep)
		}
	}
	return out
}

// Expand fills the path parameters in order and returns the request path.
// Each value is path-escaped. It fails when the number of values does not
// match the pattern or a value is empty.
func (e Endpoint) Expand(params ...string) (string, error) {
	segments := strings.Split(e.Path, "/")
	next := 0
	for i, seg := range segments {
		if !strings.HasPrefix(seg, "{") || !strings.HasSuffix(seg, "}") {
			continue
		}
		if next >= len(params) {
			return "", fmt.Errorf("api: %s: missing value for %s", e.Name, seg)
		}
		if params[next] == "" {
			return "", fmt.Errorf("api: %s: empty value for %s", e.Name, seg)
		}
		segments[i] = url.PathEscape(params[next])
		next++
	}
	if next != len(params) {
		return "", fmt.Errorf("api: %s: %d path values given, pattern takes %d", e.Name, len(params), next)
	}
	return strings.Join(segments, "/"), nil
}

// FormatAuth renders the auth header value for token.
func FormatAuth(scheme, token string) string {
	return scheme + " " + token
}
