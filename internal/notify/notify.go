// Package notify holds NotificationSink implementations: per-screen
// mailboxes, session flashes, structured logs and bus events.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nfrund/goby-messenger/internal/authflow"
	"github.com/nfrund/goby-messenger/internal/pubsub"
)

// Level is the kind of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is one user-visible message.
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Mailbox queues notifications until the screen's transport drains them.
type Mailbox struct {
	mu    sync.Mutex
	items []Notification
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

func (m *Mailbox) Success(message string) { m.add(LevelSuccess, message) }
func (m *Mailbox) Error(message string)   { m.add(LevelError, message) }

func (m *Mailbox) add(level Level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, Notification{Level: level, Message: message, At: time.Now().UTC()})
}

// Drain returns queued notifications, oldest first, and empties the mailbox.
func (m *Mailbox) Drain() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.items
	m.items = nil
	return out
}

// LogSink writes notifications to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "notify")}
}

func (s *LogSink) Success(message string) {
	s.logger.Info("Notification", "level", LevelSuccess, "message", message)
}

func (s *LogSink) Error(message string) {
	s.logger.Warn("Notification", "level", LevelError, "message", message)
}

// TopicNotification carries notifications for clients listening on the bus.
var TopicNotification = pubsub.NewEvent[Notification](
	"auth.notification",
	"User-visible auth notifications addressed to a client",
)

// BusSink publishes notifications for one client on the bus. Publish
// failures are logged; the sink itself never fails.
type BusSink struct {
	publisher pubsub.Publisher
	clientID  string
}

// NewBusSink creates a BusSink addressed to clientID.
func NewBusSink(publisher pubsub.Publisher, clientID string) *BusSink {
	return &BusSink{publisher: publisher, clientID: clientID}
}

func (s *BusSink) Success(message string) { s.publish(LevelSuccess, message) }
func (s *BusSink) Error(message string)   { s.publish(LevelError, message) }

func (s *BusSink) publish(level Level, message string) {
	n := Notification{Level: level, Message: message, At: time.Now().UTC()}
	if err := pubsub.Publish(context.Background(), s.publisher, TopicNotification, s.clientID, n); err != nil {
		slog.Error("Failed to publish notification", "client_id", s.clientID, "error", err)
	}
}

// Multi fans every notification out to all sinks, in order.
type Multi []authflow.NotificationSink

func (m Multi) Success(message string) {
	for _, s := range m {
		s.Success(message)
	}
}

func (m Multi) Error(message string) {
	for _, s := range m {
		s.Error(message)
	}
}
