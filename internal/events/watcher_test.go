package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windingtree/wt-client/internal/events"
)

func nextEvent(t *testing.T, w *events.Watcher) any {
	t.Helper()
	select {
	case ev, ok := <-w.Events():
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestWatcherBackfillsAndReconnects(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.seed("Watched", true)
	guest := e.guest()

	// Mined before the watcher starts; delivered by the first backfill.
	hash := e.request(t, guest, p.Address, p.Units[0], 30, 2, []byte("early"), false)

	set := events.NewPendingSet()
	w := events.NewWatcher(e.chain, e.decoder, nil, []common.Address{p.Address}, set,
		events.WithReconnectDelay(10*time.Millisecond, 50*time.Millisecond))
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	started, ok := nextEvent(t, w).(*events.RequestStarted)
	require.True(t, ok)
	assert.Equal(t, hash, started.ContentHash)
	require.Len(t, set.Outstanding(), 1)

	require.Eventually(t, func() bool { return e.chain.Subscriptions() == 1 }, 5*time.Second, 5*time.Millisecond)
	e.chain.DropSubscriptions()

	// Mined around the reconnect; seen exactly once either way.
	e.confirm(t, p.Address, hash)

	booked, ok := nextEvent(t, w).(*events.Booked)
	require.True(t, ok)
	assert.Equal(t, guest.Address(), booked.Requester)
	finished, ok := nextEvent(t, w).(*events.RequestFinished)
	require.True(t, ok)
	assert.Equal(t, hash, finished.ContentHash)

	assert.Empty(t, set.Outstanding())
	require.Eventually(t, func() bool { return e.chain.Subscriptions() == 1 }, 5*time.Second, 5*time.Millisecond)

	// A live event after the reconnect.
	second := e.request(t, e.guest(), p.Address, p.Units[1], 30, 1, nil, false)
	live, ok := nextEvent(t, w).(*events.RequestStarted)
	require.True(t, ok)
	assert.Equal(t, second, live.ContentHash)

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected duplicate event %T", ev)
	case <-time.After(50 * time.Millisecond):
	}

	w.Stop()
	_, open := <-w.Events()
	assert.False(t, open)
}

func TestWatcherWithoutPropertiesDoesNothing(t *testing.T) {
	e := newEnv(t)
	w := events.NewWatcher(e.chain, e.decoder, nil, nil, events.NewPendingSet())
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	assert.Equal(t, 0, e.chain.Subscriptions())
}
