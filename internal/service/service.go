// Package service orchestrates user actions across the session, the booking
// store, the event cache and the backend API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/api"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/model"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/validate"
	"go.uber.org/zap"
)

// ErrNotSignedIn is returned by operations that need a signed-in user.
var ErrNotSignedIn = errors.New("not signed in")

// ErrSessionNotEstablished is returned by Login when the backend accepted the
// credentials but the returned token could not be resolved to a profile.
var ErrSessionNotEstablished = errors.New("session could not be established")

// SessionExpiredTitle is the notification title shown when the backend
// rejects the session token.
const SessionExpiredTitle = "Session Expired"

// Session is the part of the session store the services use.
type Session interface {
	Token() string
	User() *model.User
	SetToken(ctx context.Context, token string) error
	Logout(ctx context.Context) error
	Expire(ctx context.Context, token string)
}

// Notifier surfaces transient messages to the user.
type Notifier interface {
	Success(title, message string)
	Error(title, message string)
	Info(title, message string)
}

// Invalidator marks cached queries stale.
type Invalidator interface {
	Invalidate(ctx context.Context, key string) error
}

// ─── Auth ─────────────────────────────────────────────────────────────────────

// AuthBackend is the part of the API client AuthService uses.
type AuthBackend interface {
	Login(ctx context.Context, creds model.Credentials) (*model.LoginResult, error)
	Signup(ctx context.Context, req model.SignupRequest) error
}

// AuthService handles login, signup and logout.
type AuthService struct {
	backend   AuthBackend
	session   Session
	validator *validate.Validator
	notifier  Notifier
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService with its dependencies.
func NewAuthService(backend AuthBackend, sess Session, v *validate.Validator, n Notifier, logger *zap.Logger) *AuthService {
	return &AuthService{backend: backend, session: sess, validator: v, notifier: n, logger: logger.Named("auth")}
}

// Login validates creds, exchanges them for a token and hands the token to
// the session. A validation failure is returned as validate.FieldErrors and
// no request is made.
func (s *AuthService) Login(ctx context.Context, creds model.Credentials) (*model.User, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := s.validator.Credentials(creds); err != nil {
		return nil, err
	}

	res, err := s.backend.Login(ctx, creds)
	if err != nil {
		s.logger.Info("login rejected", zap.Error(err))
		s.notifier.Error("Oops...", api.Message(err, api.GenericMessage))
		return nil, err
	}
	// Switching accounts passes through signed out so the new user's
	// bookings are fetched fresh.
	if s.session.Token() != "" {
		if err := s.session.Logout(ctx); err != nil {
			return nil, fmt.Errorf("end previous session: %w", err)
		}
	}
	if err := s.session.SetToken(ctx, res.Token); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	user := s.session.User()
	if user == nil {
		s.notifier.Error("Oops...", api.GenericMessage)
		return nil, ErrSessionNotEstablished
	}
	first := res.User.FirstName()
	if first == "" {
		first = user.FirstName()
	}
	s.notifier.Success(fmt.Sprintf("Welcome back %s !", first), "You are successfully logged in")
	return user, nil
}

// Signup validates req, derives the age from the date of birth and creates
// the account. The user still has to log in afterwards.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Signup(&req); err != nil {
		return err
	}
	if err := s.backend.Signup(ctx, req); err != nil {
		s.logger.Info("signup rejected", zap.Error(err))
		s.notifier.Error("Error!", api.Message(err, api.GenericMessage))
		return err
	}
	s.notifier.Success(fmt.Sprintf("Welcome %s !", req.Name), "User has been created successfully")
	return nil
}

// Logout signs the user out.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.session.Logout(ctx); err != nil {
		return err
	}
	s.notifier.Info("Logged out", "See you soon")
	return nil
}

// expireOnAuthFailure expires the session and tells the user when err is an
// authentication failure. It reports whether it did.
func expireOnAuthFailure(ctx context.Context, err error, token string, sess Session, n Notifier) bool {
	if !api.IsAuthFailure(err) {
		return false
	}
	sess.Expire(ctx, token)
	n.Error(SessionExpiredTitle, "Please login again to continue")
	return true
}
