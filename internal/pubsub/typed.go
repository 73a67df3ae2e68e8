package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
)

// Event[T] wraps a topic name and provides type-safe publishing and
// subscribing for payloads of type T.
type Event[T any] struct {
	topicName   string
	description string
}

// NewEvent creates a typed event bound to a topic name.
func NewEvent[T any](name string, description string) Event[T] {
	return Event[T]{
		topicName:   name,
		description: description,
	}
}

// Name returns the topic name.
func (e Event[T]) Name() string {
	return e.topicName
}

// Description returns the human-readable description of the topic.
func (e Event[T]) Description() string {
	return e.description
}

// Publish sends a typed event. The compiler ensures 'payload' matches 'T'.
func Publish[T any](ctx context.Context, p Publisher, event Event[T], clientID string, payload T) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", event.Name(), err)
	}

	return p.Publish(ctx, Message{
		Topic:    event.Name(),
		ClientID: clientID,
		Payload:  data,
	})
}

// Subscribe decodes every message on the event's topic into T before
// handing it to handler. Undecodable messages are reported as errors.
func Subscribe[T any](ctx context.Context, s Subscriber, event Event[T], handler func(ctx context.Context, clientID string, payload T) error) error {
	return s.Subscribe(ctx, event.Name(), func(ctx context.Context, msg Message) error {
		var payload T
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal %s payload: %w", event.Name(), err)
		}
		return handler(ctx, msg.ClientID, payload)
	})
}
