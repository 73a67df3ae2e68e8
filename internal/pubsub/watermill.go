package pubsub

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.opentelemetry.io/otel/trace"
)

// WatermillBridge implements the Publisher and Subscriber interfaces using watermill's GoChannel.
type WatermillBridge struct {
	pub    message.Publisher
	sub    message.Subscriber
	logger watermill.LoggerAdapter
}

const (
	// Metadata keys used to transfer our Message structure fields through watermill's message.
	metaKeyClientID = "client_id"
	metaKeyTopic    = "topic"
)

type bridgeOptions struct {
	tracer       trace.Tracer
	bufferSize   int64
	debugLogging bool
}

// BridgeOption configures a WatermillBridge.
type BridgeOption func(*bridgeOptions)

// WithTracer wraps the publisher so every publish opens a span.
func WithTracer(tracer trace.Tracer) BridgeOption {
	return func(o *bridgeOptions) {
		o.tracer = tracer
	}
}

// WithBufferSize sets the output channel buffer of each subscription.
// Non-positive sizes keep the default.
func WithBufferSize(n int64) BridgeOption {
	return func(o *bridgeOptions) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithDebugLogging turns on watermill's debug logs.
func WithDebugLogging() BridgeOption {
	return func(o *bridgeOptions) {
		o.debugLogging = true
	}
}

// NewWatermillBridge initializes an in-memory Pub/Sub system.
func NewWatermillBridge(opts ...BridgeOption) *WatermillBridge {
	options := bridgeOptions{bufferSize: 64}
	for _, opt := range opts {
		opt(&options)
	}

	logger := watermill.NewStdLogger(options.debugLogging, false)
	goChannel := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: options.bufferSize,
		},
		logger,
	)

	var pub message.Publisher = goChannel
	if options.tracer != nil {
		pub = NewTracingPublisher(goChannel, options.tracer)
	}

	return &WatermillBridge{
		pub:    pub,
		sub:    goChannel,
		logger: logger,
	}
}

// mapToWatermillMessage converts our pubsub.Message to a watermill message.
func mapToWatermillMessage(ctx context.Context, msg Message) *message.Message {
	wmMsg := message.NewMessage(watermill.NewUUID(), msg.Payload)
	wmMsg.SetContext(ctx)

	wmMsg.Metadata.Set(metaKeyClientID, msg.ClientID)
	wmMsg.Metadata.Set(metaKeyTopic, msg.Topic)

	for k, v := range msg.Metadata {
		wmMsg.Metadata.Set(k, v)
	}

	return wmMsg
}

// mapToPubSubMessage converts a watermill message back to our internal pubsub.Message.
func mapToPubSubMessage(wmMsg *message.Message) Message {
	clientID := wmMsg.Metadata.Get(metaKeyClientID)
	topic := wmMsg.Metadata.Get(metaKeyTopic)

	// Reserved keys are lifted back into their struct fields.
	metadata := make(map[string]string)
	for k, v := range wmMsg.Metadata {
		if k != metaKeyClientID && k != metaKeyTopic {
			metadata[k] = v
		}
	}

	return Message{
		Topic:    topic,
		ClientID: clientID,
		Payload:  wmMsg.Payload,
		Metadata: metadata,
	}
}

// Publish implements the Publisher interface.
func (wb *WatermillBridge) Publish(ctx context.Context, msg Message) error {
	return wb.pub.Publish(msg.Topic, mapToWatermillMessage(ctx, msg))
}

// Subscribe implements the Subscriber interface.
func (wb *WatermillBridge) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := wb.sub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	go func() {
		for wmMsg := range messages {
			msg := mapToPubSubMessage(wmMsg)

			if err := handler(wmMsg.Context(), msg); err != nil {
				slog.Error("Failed to handle message", "topic", topic, "msg_id", wmMsg.UUID, "error", err)
				// The in-memory channel would redeliver forever on Nack; a
				// failed handler is logged and the message dropped.
				wmMsg.Ack()
				continue
			}
			wmMsg.Ack()
		}
		slog.Debug("Subscription message loop ended", "topic", topic)
	}()

	return nil
}

// Close implements the Publisher and Subscriber interface to shut down the bridge.
func (wb *WatermillBridge) Close() error {
	return wb.sub.Close()
}
