// Package presence tracks which accounts are signed in, and on which
// auth screens, from the session-status signal.
package presence

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/nfrund/goby-messenger/internal/pubsub"
	"github.com/nfrund/goby-messenger/internal/sessionwatch"
)

// DefaultStaleThreshold is how long a sign-in counts without a refresh.
const DefaultStaleThreshold = 24 * time.Hour

// Presence is one signed-in client of an account.
type Presence struct {
	Subject   string    `json:"subject"`
	ClientID  string    `json:"client_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Update is published on TopicOnlineUsers whenever the set changes.
type Update struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// TopicOnlineUsers carries the current list of signed-in subjects.
var TopicOnlineUsers = pubsub.NewEvent[Update](
	"presence.users",
	"Signed-in subjects, published on every change",
)

type Service struct {
	mu        sync.RWMutex
	presences map[string]map[string]Presence // subject -> clientID -> Presence
	clients   map[string]string              // clientID -> subject
	publisher pubsub.Publisher
	logger    *slog.Logger

	staleThreshold time.Duration
	cleanupTicker  *time.Ticker
	stopCleanup    chan struct{}
	stopOnce       sync.Once
}

// Option is a function that configures a Service.
type Option func(*Service)

// WithStaleThreshold sets a custom stale threshold.
func WithStaleThreshold(d time.Duration) Option {
	return func(s *Service) {
		s.staleThreshold = d
	}
}

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}

// NewService creates a presence service. A nil publisher disables updates.
func NewService(publisher pubsub.Publisher, opts ...Option) *Service {
	svc := &Service{
		presences:      make(map[string]map[string]Presence),
		clients:        make(map[string]string),
		publisher:      publisher,
		logger:         slog.Default().With("service", "presence"),
		staleThreshold: DefaultStaleThreshold,
		stopCleanup:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(svc)
	}

	interval := svc.staleThreshold / 2
	if interval <= 0 {
		interval = time.Minute
	}
	svc.cleanupTicker = time.NewTicker(interval)
	go svc.startCleanup()

	return svc
}

// Start follows the session-status signal until ctx is canceled.
func (s *Service) Start(ctx context.Context, sub pubsub.Subscriber) error {
	return pubsub.Subscribe(ctx, sub, sessionwatch.TopicStatus, func(ctx context.Context, clientID string, change sessionwatch.StatusChanged) error {
		s.Observe(clientID, change)
		return nil
	})
}

// Observe applies one status change for clientID. Loading leaves the set
// untouched.
func (s *Service) Observe(clientID string, change sessionwatch.StatusChanged) {
	if clientID == "" {
		return
	}
	switch change.Status {
	case sessionwatch.StatusAuthenticated:
		if change.Subject != "" {
			s.addPresence(change.Subject, clientID)
		}
	case sessionwatch.StatusUnauthenticated:
		s.RemoveClient(clientID)
	}
}

func (s *Service) addPresence(subject, clientID string) {
	s.mu.Lock()

	// A client signs in as one subject at a time.
	if prev, ok := s.clients[clientID]; ok && prev != subject {
		s.removeUnsafe(prev, clientID)
	}

	s.clients[clientID] = subject
	if s.presences[subject] == nil {
		s.presences[subject] = make(map[string]Presence)
		s.logger.Info("User signed in", "subject", subject, "client_id", clientID)
	}
	s.presences[subject][clientID] = Presence{
		Subject:   subject,
		ClientID:  clientID,
		Timestamp: Now(),
	}

	onlineUsers := s.getOnlineUsersUnsafe()
	s.mu.Unlock()

	s.publishUpdate(onlineUsers)
}

// RemoveClient forgets clientID, e.g. when its screen is closed.
func (s *Service) RemoveClient(clientID string) {
	s.mu.Lock()
	subject, ok := s.clients[clientID]
	if !ok {
		s.mu.Unlock()
		return
	}
	s.removeUnsafe(subject, clientID)
	onlineUsers := s.getOnlineUsersUnsafe()
	s.mu.Unlock()

	s.publishUpdate(onlineUsers)
}

func (s *Service) removeUnsafe(subject, clientID string) {
	delete(s.clients, clientID)
	clientPresences := s.presences[subject]
	delete(clientPresences, clientID)
	if len(clientPresences) == 0 {
		delete(s.presences, subject)
		s.logger.Info("User signed out", "subject", subject)
	}
}

// GetPresence returns the most recent presence of subject.
func (s *Service) GetPresence(subject string) (Presence, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var mostRecent Presence
	for _, p := range s.presences[subject] {
		if mostRecent.Timestamp.IsZero() || p.Timestamp.After(mostRecent.Timestamp) {
			mostRecent = p
		}
	}
	return mostRecent, !mostRecent.Timestamp.IsZero()
}

// GetOnlineUsers returns the signed-in subjects, sorted.
func (s *Service) GetOnlineUsers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getOnlineUsersUnsafe()
}

func (s *Service) getOnlineUsersUnsafe() []string {
	result := make([]string, 0, len(s.presences))
	for subject, clientPresences := range s.presences {
		if len(clientPresences) > 0 {
			result = append(result, subject)
		}
	}
	sort.Strings(result)
	return result
}

func (s *Service) publishUpdate(onlineUsers []string) {
	if s.publisher == nil {
		return
	}
	update := Update{Type: "presence_update", Users: onlineUsers}
	if err := pubsub.Publish(context.Background(), s.publisher, TopicOnlineUsers, "", update); err != nil {
		s.logger.Error("Failed to publish presence update", "error", err)
	}
}

func (s *Service) startCleanup() {
	for {
		select {
		case <-s.cleanupTicker.C:
			s.cleanupStalePresences()
		case <-s.stopCleanup:
			s.cleanupTicker.Stop()
			return
		}
	}
}

// cleanupStalePresences drops sign-ins older than the stale threshold.
func (s *Service) cleanupStalePresences() {
	s.mu.Lock()

	threshold := Now().Add(-s.staleThreshold)
	removed := 0
	for subject, clientPresences := range s.presences {
		for clientID, p := range clientPresences {
			if p.Timestamp.Before(threshold) {
				s.removeUnsafe(subject, clientID)
				removed++
			}
		}
	}

	if removed == 0 {
		s.mu.Unlock()
		return
	}
	onlineUsers := s.getOnlineUsersUnsafe()
	s.mu.Unlock()

	s.logger.Info("Cleaned up stale presences", "connections_removed", removed)
	s.publishUpdate(onlineUsers)
}

// Shutdown stops the cleanup loop.
func (s *Service) Shutdown() {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
}
