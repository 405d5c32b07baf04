package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 8 << 20

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the backend API root, e.g. "https://host/api".
	BaseURL string
	// AuthScheme prefixes the token in the auth header. Defaults to DefaultAuthScheme.
	AuthScheme string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Limiter throttles outgoing requests. Nil means unlimited.
	Limiter *rate.Limiter
	// Logger receives one debug line per request. If nil, logging is disabled.
	Logger *zap.Logger
}

// Client is a typed client for the backend REST surface. It is safe for
// concurrent use and holds no credentials: callers pass the token per call.
type Client struct {
	baseURL    string
	scheme     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient validates config and returns a Client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("api: BaseURL is required")
	}
	parsed, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("api: invalid BaseURL %q: %w", config.BaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("api: BaseURL %q must be http or https", config.BaseURL)
	}

	scheme := config.AuthScheme
	if scheme == "" {
		scheme = DefaultAuthScheme
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		scheme:     scheme,
		httpClient: httpClient,
		limiter:    config.Limiter,
		logger:     logger,
	}, nil
}

// ─── Auth ─────────────────────────────────────────────────────────────────────

// Signup creates an account. The backend does not log the user in.
func (c *Client) Signup(ctx context.Context, req model.SignupRequest) error {
	return c.call(ctx, Signup, "", nil, req, nil)
}

// Login exchanges credentials for a token and the user's profile.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.LoginResult, error) {
	var out model.LoginResult
	if err := c.call(ctx, Login, "", nil, creds, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("api: %s: response carried no token", Login)
	}
	return &out, nil
}

// UserData resolves the profile that token belongs to.
func (c *Client) UserData(ctx context.Context, token string) (*model.User, error) {
	var out struct {
		User *model.User `json:"user"`
	}
	if err := c.call(ctx, UserData, token, nil, nil, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, fmt.Errorf("api: %s: response carried no user", UserData)
	}
	return out.User, nil
}

// AllUsers lists every account. Admin only.
func (c *Client) AllUsers(ctx context.Context, token string) ([]model.User, error) {
	var out struct {
		Users []model.User `json:"users"`
	}
	if err := c.call(ctx, AllUsers, token, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// ChangeRole sets the role of user id and returns the server message and the
// role transition.
func (c *Client) ChangeRole(ctx context.Context, token, id string, role model.Role) (string, *model.RoleChange, error) {
	var out struct {
		Message string           `json:"message"`
		Data    model.RoleChange `json:"data"`
	}
	body := map[string]model.Role{"role": role}
	if err := c.call(ctx, ChangeRole, token, []string{id}, body, &out); err != nil {
		return "", nil, err
	}
	return out.Message, &out.Data, nil
}

// ─── Events ───────────────────────────────────────────────────────────────────

// Events lists the events shown to end users. No token needed.
func (c *Client) Events(ctx context.Context) ([]model.Event, error) {
	var out struct {
		Events []model.Event `json:"events"`
	}
	if err := c.call(ctx, Events, "", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

// AllEvents lists every event for the admin panel.
func (c *Client) AllEvents(ctx context.Context, token string) ([]model.Event, error) {
	var out struct {
		Events []model.Event `json:"events"`
	}
	if err := c.call(ctx, AllEvents, token, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

// EventDetails fetches a single event.
func (c *Client) EventDetails(ctx context.Context, id string) (*model.Event, error) {
	var out struct {
		Event *model.Event `json:"event"`
	}
	if err := c.call(ctx, EventDetails, "", []string{id}, nil, &out); err != nil {
		return nil, err
	}
	if out.Event == nil {
		return nil, &APIError{StatusCode: http.StatusNotFound, Message: "Event not found", Endpoint: EventDetails}
	}
	return out.Event, nil
}

// AddEvent creates an event from a multipart form.
func (c *Client) AddEvent(ctx context.Context, token string, in model.EventInput) (*model.Event, error) {
	return c.sendEvent(ctx, AddEvent, token, nil, in)
}

// UpdateEvent replaces the fields of event id from a multipart form.
func (c *Client) UpdateEvent(ctx context.Context, token, id string, in model.EventInput) (*model.Event, error) {
	return c.sendEvent(ctx, UpdateEvent, token, []string{id}, in)
}

// DeleteEvent removes event id.
func (c *Client) DeleteEvent(ctx context.Context, token, id string) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.call(ctx, DeleteEvent, token, []string{id}, nil, &out); err != nil {
		return err
	}
	if out.Status != "" && out.Status != "success" {
		return &APIError{StatusCode: http.StatusOK, Message: "Failed to delete event", Details: out.Status, Endpoint: DeleteEvent}
	}
	return nil
}

func (c *Client) sendEvent(ctx context.Context, name, token string, params []string, in model.EventInput) (*model.Event, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"name", in.Name},
		{"description", in.Description},
		{"startDate", in.StartDate.UTC().Format(time.RFC3339)},
		{"endDate", in.EndDate.UTC().Format(time.RFC3339)},
		{"place", in.Place},
		{"latitude", strconv.FormatFloat(in.Latitude, 'f', -1, 64)},
		{"longitude", strconv.FormatFloat(in.Longitude, 'f', -1, 64)},
		{"capacity", strconv.Itoa(in.Capacity)},
		{"price", strconv.FormatFloat(in.Price, 'f', -1, 64)},
		{"presenter", in.Presenter},
		{"type", string(in.Type)},
		{"status", string(in.Status)},
		{"isFeatured", strconv.FormatBool(in.IsFeatured)},
	}
	for _, f := range fields {
		if err := form.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("api: %s: write field %s: %w", name, f[0], err)
		}
	}
	if len(in.Image) > 0 {
		filename := in.ImageName
		if filename == "" {
			filename = "event-image"
		}
		part, err := form.CreateFormFile("eventImage", filename)
		if err != nil {
			return nil, fmt.Errorf("api: %s: create image part: %w", name, err)
		}
		if _, err := part.Write(in.Image); err != nil {
			return nil, fmt.Errorf("api: %s: write image: %w", name, err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("api: %s: close form: %w", name, err)
	}

	var out struct {
		Data struct {
			Event *model.Event `json:"event"`
		} `json:"data"`
		Event *model.Event `json:"event"`
	}
	if err := c.do(ctx, name, token, params, form.FormDataContentType(), &buf, &out); err != nil {
		return nil, err
	}
	if out.Data.Event != nil {
		return out.Data.Event, nil
	}
	return out.Event, nil
}

// ─── Bookings ─────────────────────────────────────────────────────────────────

// Book reserves a seat at eventID for the token's user.
func (c *Client) Book(ctx context.Context, token, eventID string) error {
	return c.call(ctx, BookEvent, token, []string{eventID}, nil, nil)
}

// Bookings lists the token user's bookings.
func (c *Client) Bookings(ctx context.Context, token string) (model.Bookings, error) {
	var out struct {
		Bookings model.Bookings `json:"bookings"`
	}
	if err := c.call(ctx, ListBookings, token, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Bookings, nil
}

// CancelBooking deletes booking bookingID.
func (c *Client) CancelBooking(ctx context.Context, token, bookingID string) error {
	return c.call(ctx, CancelBook, token, []string{bookingID}, nil, nil)
}

// ─── Transport ────────────────────────────────────────────────────────────────

// call sends an optional JSON body and decodes an optional JSON response.
func (c *Client) call(ctx context.Context, name, token string, params []string, in, out any) error {
	var (
		body        io.Reader
		contentType string
	)
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: %s: marshal request: %w", name, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, name, token, params, contentType, body, out)
}

func (c *Client) do(ctx context.Context, name, token string, params []string, contentType string, body io.Reader, out any) error {
	ep, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("api: unknown endpoint %q", name)
	}
	if ep.Auth != AuthNone && token == "" {
		return fmt.Errorf("%s: %w", name, ErrNoToken)
	}
	path, err := ep.Expand(params...)
	if err != nil {
		return err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("api: %s: rate limit: %w", name, err)
		}
	}

	request, err := http.NewRequestWithContext(ctx, ep.Method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: %s: create request: %w", name, err)
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	if ep.Auth != AuthNone {
		request.Header.Set(AuthHeader, FormatAuth(c.scheme, token))
	}

	start := time.Now()
	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("api: request to %s %s failed: %w", ep.Method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("api: %s: read response: %w", name, err)
	}

	c.logger.Debug("backend request",
		zap.String("endpoint", name),
		zap.String("method", ep.Method),
		zap.String("path", path),
		zap.Int("status", response.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return decodeError(response.StatusCode, name, responseBody)
	}
	if out == nil || len(bytes.TrimSpace(responseBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(responseBody, out); err != nil {
		return fmt.Errorf("api: %s: parse response: %w", name, err)
	}
	return nil
}
