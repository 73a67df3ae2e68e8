package sessionwatch

import (
	"context"
	"testing"
	"time"

	"github.com/nfrund/goby-messenger/internal/navigation"
	"github.com/nfrund/goby-messenger/internal/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_Observe(t *testing.T) {
	t.Run("unauthenticated to authenticated navigates once", func(t *testing.T) {
		nav := navigation.NewScreen()
		w := New(nav, "client-1")

		w.Observe(StatusUnauthenticated)
		w.Observe(StatusAuthenticated)

		assert.Equal(t, []string{"/users"}, nav.History())
		assert.Equal(t, StatusAuthenticated, w.Status())
	})

	t.Run("loading and unauthenticated never navigate", func(t *testing.T) {
		nav := navigation.NewScreen()
		w := New(nav, "client-1")

		w.Observe(StatusLoading)
		w.Observe(StatusUnauthenticated)

		assert.Empty(t, nav.History())
	})

	t.Run("every authenticated signal navigates", func(t *testing.T) {
		nav := navigation.NewScreen()
		w := New(nav, "client-1", WithRedirectPath("/conversations"))

		w.Observe(StatusAuthenticated)
		w.Observe(StatusLoading)
		w.Observe(StatusAuthenticated)

		assert.Equal(t, []string{"/conversations", "/conversations"}, nav.History())
	})
}

func TestWatcher_Start(t *testing.T) {
	bus := pubsub.NewWatermillBridge()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	navigated := make(chan string, 4)
	nav := navigation.NewScreen(navigation.WithListener(func(path string) { navigated <- path }))
	w := New(nav, "client-1")
	require.NoError(t, w.Start(ctx, bus))

	// A status change for another screen is ignored.
	require.NoError(t, PublishStatus(ctx, bus, "client-2", StatusChanged{Status: StatusAuthenticated}))
	require.NoError(t, PublishStatus(ctx, bus, "client-1", StatusChanged{Status: StatusLoading}))
	require.NoError(t, PublishStatus(ctx, bus, "client-1", StatusChanged{Status: StatusAuthenticated, Subject: "a@b.com"}))

	select {
	case path := <-navigated:
		assert.Equal(t, "/users", path)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not navigate")
	}

	// Nothing else is pending.
	select {
	case path := <-navigated:
		t.Fatalf("unexpected navigation to %s", path)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, []string{"/users"}, nav.History())
}

func TestClientIDContext(t *testing.T) {
	assert.Empty(t, ClientIDFromContext(context.Background()))

	ctx := WithClientID(context.Background(), "abc")
	assert.Equal(t, "abc", ClientIDFromContext(ctx))
}
