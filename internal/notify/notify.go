// Package notify queues transient success and error messages until the next
// rendered view picks them up.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// maxPending bounds the queue; the oldest entries are dropped first.
const maxPending = 20

// Notification is one message shown to the user.
type Notification struct {
	ID      string
	Kind    Kind
	Title   string
	Message string
	At      time.Time
}

// Center is the process-wide notification queue.
type Center struct {
	logger *zap.Logger

	mu      sync.Mutex
	pending []Notification
}

// New returns an empty Center.
func New(logger *zap.Logger) *Center {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Center{logger: logger.Named("notify")}
}

// Success queues a success message.
func (c *Center) Success(title, message string) {
	c.push(KindSuccess, title, message)
}

// Error queues an error message.
func (c *Center) Error(title, message string) {
	c.push(KindError, title, message)
}

// Info queues an informational message.
func (c *Center) Info(title, message string) {
	c.push(KindInfo, title, message)
}

func (c *Center) push(kind Kind, title, message string) {
	n := Notification{
		ID:      uuid.NewString(),
		Kind:    kind,
		Title:   title,
		Message: message,
		At:      time.Now(),
	}
	c.mu.Lock()
	c.pending = append(c.pending, n)
	if len(c.pending) > maxPending {
		c.pending = c.pending[len(c.pending)-maxPending:]
	}
	c.mu.Unlock()

	c.logger.Debug("notification queued",
		zap.String("kind", string(kind)),
		zap.String("title", title),
		zap.String("message", message),
	)
}

// Drain returns the queued notifications, oldest first, and empties the queue.
func (c *Center) Drain() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.pending
	c.pending = nil
	return out
}

// Pending returns a copy of the queue without draining it.
func (c *Center) Pending() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.pending))
	copy(out, c.pending)
	return out
}
