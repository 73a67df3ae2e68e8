// Package sessionwatch reacts to the externally owned session-status
// signal and redirects the auth screen once the user is authenticated.
package sessionwatch

import (
	"context"

	"github.com/nfrund/goby-messenger/internal/pubsub"
)

// Status is the authentication state of the current user.
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusLoading         Status = "loading"
	StatusAuthenticated   Status = "authenticated"
)

// StatusChanged is the payload of TopicStatus.
type StatusChanged struct {
	Status Status `json:"status"`
	// Subject is the account the status refers to, when known.
	Subject string `json:"subject,omitempty"`
}

// TopicStatus carries session-status changes, one message per change,
// addressed to a client id.
var TopicStatus = pubsub.NewEvent[StatusChanged](
	"auth.session.status",
	"Session status changes for an auth screen",
)

// PublishStatus announces a status change for clientID.
func PublishStatus(ctx context.Context, p pubsub.Publisher, clientID string, change StatusChanged) error {
	return pubsub.Publish(ctx, p, TopicStatus, clientID, change)
}

type clientIDKey struct{}

// WithClientID returns a context carrying the auth screen's client id, so
// identity backends can address status changes to it.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey{}, clientID)
}

// ClientIDFromContext returns the client id stored by WithClientID.
func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey{}).(string)
	return id
}
