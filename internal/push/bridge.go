// Package push streams bus events to auth screens over WebSocket.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/goby-messenger/internal/notify"
	"github.com/nfrund/goby-messenger/internal/presence"
	"github.com/nfrund/goby-messenger/internal/pubsub"
)

const (
	sendBuffer   = 32
	writeTimeout = 10 * time.Second
)

// Frame is one message written to a connected screen.
type Frame struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

type client struct {
	id   string
	send chan []byte
}

// Bridge forwards notifications to the screen they are addressed to and
// presence updates to every connected screen. A screen may hold several
// connections, one per open tab.
type Bridge struct {
	mu      sync.RWMutex
	clients map[string][]*client
	logger  *slog.Logger
}

// NewBridge creates a bridge with no connections. A nil logger uses
// slog.Default().
func NewBridge(logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		clients: make(map[string][]*client),
		logger:  logger.With("component", "push"),
	}
}

// Start subscribes the bridge to the notification and presence topics.
// Subscriptions end with ctx.
func (b *Bridge) Start(ctx context.Context, sub pubsub.Subscriber) error {
	if err := sub.Subscribe(ctx, notify.TopicNotification.Name(), b.direct); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", notify.TopicNotification.Name(), err)
	}
	if err := sub.Subscribe(ctx, presence.TopicOnlineUsers.Name(), b.broadcast); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", presence.TopicOnlineUsers.Name(), err)
	}
	return nil
}

// Connections returns how many connections are open for clientID.
func (b *Bridge) Connections(clientID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[clientID])
}

// Serve upgrades the request and streams frames for clientID until the
// browser disconnects. Anything the browser sends is ignored.
func (b *Bridge) Serve(c echo.Context, clientID string) error {
	// Registered before the handshake completes so nothing published after
	// the browser sees the upgrade is missed.
	cl := &client{id: clientID, send: make(chan []byte, sendBuffer)}
	b.add(cl)
	defer b.remove(cl)

	conn, err := websocket.Accept(c.Response(), c.Request(), nil)
	if err != nil {
		b.logger.Warn("Failed to upgrade connection to WebSocket", "client_id", clientID, "error", err)
		return nil
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(c.Request().Context())
	b.logger.Info("Push connection opened", "client_id", clientID)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Push connection closed", "client_id", clientID)
			return nil
		case frame := <-cl.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					b.logger.Warn("WebSocket write error", "client_id", clientID, "error", err)
				}
				return nil
			}
		}
	}
}

func (b *Bridge) direct(_ context.Context, msg pubsub.Message) error {
	if msg.ClientID == "" {
		return nil
	}
	frame, err := encode(msg)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, cl := range b.clients[msg.ClientID] {
		b.deliver(cl, frame)
	}
	return nil
}

func (b *Bridge) broadcast(_ context.Context, msg pubsub.Message) error {
	frame, err := encode(msg)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, clients := range b.clients {
		for _, cl := range clients {
			b.deliver(cl, frame)
		}
	}
	return nil
}

// deliver must be called with mu held.
func (b *Bridge) deliver(cl *client, frame []byte) {
	select {
	case cl.send <- frame:
	default:
		b.logger.Warn("Client send buffer full, dropping frame", "client_id", cl.id)
	}
}

func (b *Bridge) add(cl *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[cl.id] = append(b.clients[cl.id], cl)
}

func (b *Bridge) remove(cl *client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clients := b.clients[cl.id]
	for i, c := range clients {
		if c == cl {
			clients = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(clients) == 0 {
		delete(b.clients, cl.id)
		return
	}
	b.clients[cl.id] = clients
}

func encode(msg pubsub.Message) ([]byte, error) {
	frame, err := json.Marshal(Frame{Topic: msg.Topic, Payload: json.RawMessage(msg.Payload)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s frame: %w", msg.Topic, err)
	}
	return frame, nil
}
