// Package handler contains the chi HTTP handlers that serve the storefront
// routes and translate form posts to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/api"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/booking"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/events"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/model"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/notify"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/service"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/session"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/validate"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Deps are the components the storefront handlers drive.
type Deps struct {
	Session  *session.Store
	Bookings *booking.Store
	Events   *events.Cache
	Flow     *service.BookingFlow
	Auth     *service.AuthService
	Admin    *service.AdminService
	Notes    *notify.Center
	Logger   *zap.Logger
}

// Handler holds all HTTP handlers for the storefront.
type Handler struct {
	d      Deps
	views  *views
	logger *zap.Logger
}

// New parses the embedded templates and returns a Handler.
func New(d Deps) (*Handler, error) {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	h := &Handler{d: d, logger: d.Logger.Named("handler")}
	v, err := parseViews(h.funcs())
	if err != nil {
		return nil, err
	}
	h.views = v
	return h, nil
}

// Routes builds the storefront router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(RealIP)
	r.Use(Logger(h.logger))
	r.Use(h.Recoverer)

	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.notFound)

	r.Get("/health", HealthCheck)

	r.Get("/", h.Home)
	r.Get("/login", h.LoginForm)
	r.Post("/login", h.Login)
	r.Get("/signup", h.SignupForm)
	r.Post("/signup", h.Signup)
	r.Post("/logout", h.Logout)

	r.Get("/event/{id}", h.EventDetails)
	r.Post("/event/{id}/book", h.Book)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireRole(model.RoleUser, model.RoleAdmin))
		r.Get("/my-profile", h.Profile)
		r.Get("/cart", h.Cart)
		r.Get("/cart/{bookingID}/unbook", h.ConfirmUnbook)
		r.Post("/cart/{bookingID}/unbook", h.Unbook)
	})

	r.Route("/admin-panal", func(r chi.Router) {
		r.Use(h.RequireRole(model.RoleAdmin))
		r.Get("/", h.AllUsers)
		r.Get("/all-users", h.AllUsers)
		r.Post("/all-users/{id}/role", h.ChangeRole)
		r.Get("/all-events", h.AllEvents)
		r.Get("/all-events/{id}/delete", h.ConfirmDeleteEvent)
		r.Post("/all-events/{id}/delete", h.DeleteEvent)
		r.NotFound(h.notFound)
	})

	return r
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a backend failure to the status of the rendered page.
func statusFor(err error) int {
	var apiErr *api.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		return apiErr.StatusCode
	case errors.Is(err, service.ErrNotSignedIn):
		return http.StatusUnauthorized
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// objectID returns the route parameter name when it is a well-formed
// ObjectID hex string.
func objectID(r *http.Request, name string) (string, bool) {
	id := chi.URLParam(r, name)
	return id, primitive.IsValidObjectID(id)
}

// localPath returns p when it is a path on this site, fallback otherwise.
func localPath(p, fallback string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, "\\") {
		return fallback
	}
	return p
}

// referer returns the local path of the request's Referer, or fallback.
func referer(r *http.Request, fallback string) string {
	ref := r.Referer()
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return fallback
	}
	p := u.EscapedPath()
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return localPath(p, fallback)
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// ─── Public pages ─────────────────────────────────────────────────────────────

type homeView struct {
	Featured []model.Event
	Page     events.Page
}

// Home handles GET /
// Renders the featured events and one page of the regular ones.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.d.Events.Events(r.Context())
	if err != nil {
		h.logger.Error("load events", zap.Error(err))
		h.renderError(w, r, statusFor(err), api.Message(err, "Could not load events"))
		return
	}
	number, _ := strconv.Atoi(r.URL.Query().Get("page"))
	h.render(w, r, http.StatusOK, "home", page{
		Title: "Home",
		Data: homeView{
			Featured: catalog.Featured,
			Page:     events.Paginate(catalog.Regular, number, events.DefaultPerPage),
		},
	})
}

type eventView struct {
	Event model.Event
}

// EventDetails handles GET /event/{id}
func (h *Handler) EventDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := objectID(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}
	e, err := h.d.Events.Details(r.Context(), id)
	if err != nil {
		if api.IsStatus(err, http.StatusNotFound) || api.IsStatus(err, http.StatusBadRequest) {
			h.notFound(w, r)
			return
		}
		h.logger.Error("load event", zap.String("event_id", id), zap.Error(err))
		h.renderError(w, r, statusFor(err), api.Message(err, "Could not load event"))
		return
	}
	h.render(w, r, http.StatusOK, "event", page{Title: e.Name, Data: eventView{Event: *e}})
}

type promptView struct {
	Prompt string
	Back   string
}

// Book handles POST /event/{id}/book
// Signed-out users get the login prompt; everyone else is sent back to the
// page they booked from once the attempt has finished.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	id, ok := objectID(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}
	back := referer(r, "/event/"+id)

	// A disabled control holds for reposted forms and stale pages too.
	if h.d.Session.Token() != "" {
		if catalog, err := h.d.Events.Events(r.Context()); err == nil {
			if e, found := catalog.Find(id); found {
				if c := h.d.Flow.Control(e); c.Disabled {
					h.d.Notes.Info(c.Label, e.Name)
					redirect(w, r, back)
					return
				}
			}
		}
	}

	outcome, err := h.d.Flow.Book(r.Context(), id)
	switch outcome {
	case service.LoginRequired:
		h.render(w, r, http.StatusUnauthorized, "login_prompt", page{
			Title: "Login",
			Data:  promptView{Prompt: service.LoginPrompt, Back: back},
		})
		return
	case service.Failed:
		h.logger.Debug("book failed", zap.String("event_id", id), zap.Error(err))
	}
	redirect(w, r, back)
}

// ─── Auth ─────────────────────────────────────────────────────────────────────

type loginForm struct {
	Email string
}

// LoginForm handles GET /login
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login", page{Title: "Login", Data: loginForm{}})
}

// Login handles POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	creds := model.Credentials{
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	}
	if _, err := h.d.Auth.Login(r.Context(), creds); err != nil {
		status := statusFor(err)
		fields := validate.Fields(err)
		if fields != nil {
			status = http.StatusUnprocessableEntity
		}
		h.render(w, r, status, "login", page{Title: "Login", Errors: fields, Data: loginForm{Email: creds.Email}})
		return
	}
	redirect(w, r, "/")
}

type signupForm struct {
	Name        string
	Email       string
	DateOfBirth string
	Gender      string
}

// SignupForm handles GET /signup
func (h *Handler) SignupForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "signup", page{Title: "Sign Up", Data: signupForm{}})
}

// Signup handles POST /signup
// A created account is sent to the login page.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	req := model.SignupRequest{
		Name:            r.PostForm.Get("name"),
		Email:           r.PostForm.Get("email"),
		Password:        r.PostForm.Get("password"),
		ConfirmPassword: r.PostForm.Get("confirmPassword"),
		DateOfBirth:     r.PostForm.Get("dateOfBirth"),
		Gender:          r.PostForm.Get("gender"),
	}
	if err := h.d.Auth.Signup(r.Context(), req); err != nil {
		status := statusFor(err)
		fields := validate.Fields(err)
		if fields != nil {
			status = http.StatusUnprocessableEntity
		}
		h.render(w, r, status, "signup", page{
			Title:  "Sign Up",
			Errors: fields,
			Data:   signupForm{Name: req.Name, Email: req.Email, DateOfBirth: req.DateOfBirth, Gender: req.Gender},
		})
		return
	}
	redirect(w, r, "/login")
}

// Logout handles POST /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Auth.Logout(r.Context()); err != nil {
		h.logger.Error("logout", zap.Error(err))
		h.renderError(w, r, http.StatusInternalServerError, "Could not log out")
		return
	}
	redirect(w, r, "/")
}

// ─── Signed-in pages ──────────────────────────────────────────────────────────

// Profile handles GET /my-profile
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "profile", page{Title: "My Profile"})
}

type cartView struct {
	Bookings model.Bookings
	Total    float64
	Loading  bool
}

// Cart handles GET /cart
// Shows the booking store as it is; it is refreshed by login and by
// successful book and unbook attempts, never by viewing it.
func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	list := h.d.Bookings.Bookings()
	h.render(w, r, http.StatusOK, "cart", page{
		Title: "Cart",
		Data:  cartView{Bookings: list, Total: list.Total(), Loading: h.d.Bookings.Loading()},
	})
}

type confirmView struct {
	Heading      string
	Prompt       string
	Action       string
	ConfirmLabel string
}

func (h *Handler) lookupBooking(w http.ResponseWriter, r *http.Request) (model.Booking, bool) {
	id := chi.URLParam(r, "bookingID")
	if !primitive.IsValidObjectID(id) {
		h.notFound(w, r)
		return model.Booking{}, false
	}
	b, ok := h.d.Bookings.Bookings().ByID(id)
	if !ok {
		h.notFound(w, r)
		return model.Booking{}, false
	}
	return b, true
}

// ConfirmUnbook handles GET /cart/{bookingID}/unbook
func (h *Handler) ConfirmUnbook(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookupBooking(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, "confirm", page{
		Title: "Unbook",
		Data: confirmView{
			Heading:      "Are you sure?",
			Prompt:       fmt.Sprintf("Do you want to cancel your booking for %s?", b.Event.Name),
			Action:       "/cart/" + b.ID + "/unbook",
			ConfirmLabel: "Yes, unbook",
		},
	})
}

// Unbook handles POST /cart/{bookingID}/unbook
// The confirmation form posts confirm=yes; anything else declines.
func (h *Handler) Unbook(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookupBooking(w, r)
	if !ok {
		return
	}
	confirmed := r.PostFormValue("confirm") == "yes"
	outcome, err := h.d.Flow.Unbook(r.Context(), b, service.ConfirmFunc(func(_ context.Context, _ string) bool {
		return confirmed
	}))
	if outcome == service.Failed {
		h.logger.Debug("unbook failed", zap.String("booking_id", b.ID), zap.Error(err))
	}
	redirect(w, r, "/cart")
}

// ─── Admin panel ──────────────────────────────────────────────────────────────

type usersView struct {
	Users []model.User
}

// AllUsers handles GET /admin-panal and GET /admin-panal/all-users
func (h *Handler) AllUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.d.Admin.Users(r.Context())
	if err != nil {
		h.adminFailure(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_users", page{Title: "All Users", Data: usersView{Users: users}})
}

// ChangeRole handles POST /admin-panal/all-users/{id}/role
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id, ok := objectID(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}
	role := model.Role(r.PostFormValue("role"))
	if !role.Valid() {
		h.d.Notes.Error("Error", fmt.Sprintf("Unknown role %q", role))
		redirect(w, r, "/admin-panal/all-users")
		return
	}
	if _, err := h.d.Admin.ChangeRole(r.Context(), id, role); err != nil && h.d.Session.User() == nil {
		h.adminFailure(w, r, err)
		return
	}
	redirect(w, r, "/admin-panal/all-users")
}

type adminEventsView struct {
	Filter   events.Filter
	Statuses []string
	Types    []string
	Events   []model.Event
}

// AllEvents handles GET /admin-panal/all-events
// Optional status and type query parameters narrow the list.
func (h *Handler) AllEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := events.Filter{Status: q.Get("status"), Type: q.Get("type")}
	list, err := h.d.Admin.Events(r.Context(), filter)
	if err != nil {
		h.adminFailure(w, r, err)
		return
	}
	if filter.Status == "" {
		filter.Status = events.All
	}
	if filter.Type == "" {
		filter.Type = events.All
	}
	v := adminEventsView{Filter: filter, Events: list, Statuses: []string{events.All}, Types: []string{events.All}}
	for _, s := range model.EventStatuses {
		v.Statuses = append(v.Statuses, string(s))
	}
	for _, t := range model.EventTypes {
		v.Types = append(v.Types, string(t))
	}
	h.render(w, r, http.StatusOK, "admin_events", page{Title: "All Events", Data: v})
}

// ConfirmDeleteEvent handles GET /admin-panal/all-events/{id}/delete
func (h *Handler) ConfirmDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := objectID(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}
	h.render(w, r, http.StatusOK, "confirm", page{
		Title: "Delete Event",
		Data: confirmView{
			Heading:      "Are you sure?",
			Prompt:       "You won't be able to revert this!",
			Action:       "/admin-panal/all-events/" + id + "/delete",
			ConfirmLabel: "Yes, delete it!",
		},
	})
}

// DeleteEvent handles POST /admin-panal/all-events/{id}/delete
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := objectID(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}
	if r.PostFormValue("confirm") == "yes" {
		if err := h.d.Admin.DeleteEvent(r.Context(), id); err != nil && h.d.Session.User() == nil {
			h.adminFailure(w, r, err)
			return
		}
	}
	redirect(w, r, "/admin-panal/all-events")
}

// adminFailure renders the outcome of a failed admin call. An expired
// session leaves nobody signed in, which the panel shows as not authorized.
func (h *Handler) adminFailure(w http.ResponseWriter, r *http.Request, err error) {
	if h.d.Session.User() == nil {
		h.render(w, r, http.StatusForbidden, "not_authorized", page{Title: "Not Authorized"})
		return
	}
	h.logger.Error("admin call failed", zap.Error(err))
	h.renderError(w, r, statusFor(err), api.Message(err, api.GenericMessage))
}

// ─── Status pages ─────────────────────────────────────────────────────────────

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "not_found", page{Title: "Not Found"})
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.render(w, r, status, "error", page{Title: "Error", Data: msg})
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
