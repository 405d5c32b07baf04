package service

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/api"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/events"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/model"
	"go.uber.org/zap"
)

// NoEventsForFilters is queued when an active admin filter matches nothing.
const NoEventsForFilters = "No events found for selected filters"

// AdminBackend is the part of the API client AdminService uses.
type AdminBackend interface {
	AllUsers(ctx context.Context, token string) ([]model.User, error)
	ChangeRole(ctx context.Context, token, id string, role model.Role) (string, *model.RoleChange, error)
	AllEvents(ctx context.Context, token string) ([]model.Event, error)
	DeleteEvent(ctx context.Context, token, id string) error
}

// AdminService backs the admin panel. Every call uses the session token; an
// authentication failure expires the session.
type AdminService struct {
	backend  AdminBackend
	session  Session
	cache    Invalidator
	notifier Notifier
	logger   *zap.Logger
}

// NewAdminService constructs an AdminService with its dependencies.
func NewAdminService(backend AdminBackend, sess Session, cache Invalidator, n Notifier, logger *zap.Logger) *AdminService {
	return &AdminService{backend: backend, session: sess, cache: cache, notifier: n, logger: logger.Named("admin")}
}

// Users lists every account.
func (s *AdminService) Users(ctx context.Context) ([]model.User, error) {
	token := s.session.Token()
	if token == "" {
		return nil, ErrNotSignedIn
	}
	users, err := s.backend.AllUsers(ctx, token)
	if err != nil {
		s.report(ctx, "list users", token, err)
		return nil, err
	}
	return users, nil
}

// ChangeRole sets user id's role and reports the change.
func (s *AdminService) ChangeRole(ctx context.Context, id string, role model.Role) (*model.RoleChange, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	token := s.session.Token()
	if token == "" {
		return nil, ErrNotSignedIn
	}
	msg, change, err := s.backend.ChangeRole(ctx, token, id, role)
	if err != nil {
		s.report(ctx, "change role", token, err)
		return nil, err
	}
	if change == nil {
		change = &model.RoleChange{NewRole: role}
	}
	if msg == "" {
		msg = "Role updated successfully"
	}
	s.notifier.Success(msg, fmt.Sprintf("Role changed from %s to %s", change.OldRole, change.NewRole))
	s.logger.Info("role changed",
		zap.String("user_id", id),
		zap.String("old_role", string(change.OldRole)),
		zap.String("new_role", string(change.NewRole)),
	)
	return change, nil
}

// Events lists every event narrowed by filter. An active filter that
// matches nothing queues an informational notification.
func (s *AdminService) Events(ctx context.Context, filter events.Filter) ([]model.Event, error) {
	token := s.session.Token()
	if token == "" {
		return nil, ErrNotSignedIn
	}
	list, err := s.backend.AllEvents(ctx, token)
	if err != nil {
		s.report(ctx, "list events", token, err)
		return nil, err
	}
	out := filter.Apply(list)
	if len(out) == 0 && filter.Active() {
		s.notifier.Info("No results", NoEventsForFilters)
	}
	return out, nil
}

// DeleteEvent removes event id and invalidates the public event list.
func (s *AdminService) DeleteEvent(ctx context.Context, id string) error {
	token := s.session.Token()
	if token == "" {
		return ErrNotSignedIn
	}
	if err := s.backend.DeleteEvent(ctx, token, id); err != nil {
		s.report(ctx, "delete event", token, err)
		return err
	}
	if err := s.cache.Invalidate(ctx, events.EventsKey); err != nil {
		s.logger.Warn("invalidate events", zap.Error(err))
	}
	s.notifier.Success("Deleted!", "Event has been deleted.")
	return nil
}

func (s *AdminService) report(ctx context.Context, action, token string, err error) {
	s.logger.Info(action+" failed", zap.Error(err))
	if expireOnAuthFailure(ctx, err, token, s.session, s.notifier) {
		return
	}
	s.notifier.Error("Error", api.Message(err, api.GenericMessage))
}
