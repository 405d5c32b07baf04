package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoToken is returned when an authenticated endpoint is called without a token.
var ErrNoToken = errors.New("api: endpoint requires a token")

// GenericMessage is shown when the backend gives no message of its own.
const GenericMessage = "Something went wrong"

// expiredDetails is the detail string the backend sends for an expired JWT.
const expiredDetails = "jwt expired"

// APIError is a non-2xx response from the backend. Callers use errors.As:
//
//	var apiErr *APIError
//	if errors.As(err, &apiErr) && apiErr.IsAuthFailure() { ... }
type APIError struct {
	StatusCode int
	Message    string
	Details    string
	Endpoint   string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Details != "" {
		return fmt.Sprintf("api: %s (%d): %s: %s", e.Endpoint, e.StatusCode, msg, e.Details)
	}
	return fmt.Sprintf("api: %s (%d): %s", e.Endpoint, e.StatusCode, msg)
}

// IsAuthFailure reports whether the backend rejected the token itself.
func (e *APIError) IsAuthFailure() bool {
	return e.StatusCode == http.StatusUnauthorized ||
		strings.EqualFold(e.Details, expiredDetails)
}

// IsAuthFailure reports whether err carries an *APIError for a rejected token.
func IsAuthFailure(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsAuthFailure()
}

// IsStatus reports whether err carries an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Message returns the server-provided message carried by err, or fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if apiErr.Details != "" {
			return apiErr.Details
		}
	}
	return fallback
}

// errorBody covers the shapes the backend uses for errors:
// {"message","details"}, {"error":"..."} and {"error":{"message","details"}}.
type errorBody struct {
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
	Error   json.RawMessage `json:"error"`
}

func decodeError(status int, endpoint string, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Endpoint: endpoint}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}
	apiErr.Message = eb.Message
	apiErr.Details = rawString(eb.Details)

	if len(eb.Error) > 0 {
		var nested struct {
			Message string          `json:"message"`
			Details json.RawMessage `json:"details"`
		}
		if s := rawString(eb.Error); s != "" {
			if apiErr.Message == "" {
				apiErr.Message = s
			}
		} else if json.Unmarshal(eb.Error, &nested) == nil {
			if apiErr.Message == "" {
				apiErr.Message = nested.Message
			}
			if apiErr.Details == "" {
				apiErr.Details = rawString(nested.Details)
			}
		}
	}
	return apiErr
}

// rawString returns raw as a string when it is a JSON string, else "".
func rawString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}
