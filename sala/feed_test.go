package main

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taldoflemis/trattoria/cucina"
)

func TestGoChannelFeedDeliversToSubscriber(t *testing.T) {
	// Arrange
	feed := NewGoChannelOrderFeed()
	flusher := httptest.NewRecorder()

	ch, err := feed.SubLiveOrders(context.Background(), flusher)
	require.NoError(t, err)

	// Act
	go func() {
		_ = feed.PubOrder(context.Background(), cucina.Order{ID: "ord-1", Status: cucina.StatusPending})
	}()

	// Assert
	select {
	case order := <-ch:
		assert.Equal(t, "ord-1", order.ID)
	case <-time.After(time.Second):
		t.Fatal("no order delivered to subscriber")
	}
}

func TestGoChannelFeedPublishSurvivesDepartingSubscriber(t *testing.T) {
	// Arrange: a subscriber that never reads, with its backlog full.
	feed := NewGoChannelOrderFeed()
	flusher := httptest.NewRecorder()
	_, err := feed.SubLiveOrders(context.Background(), flusher)
	require.NoError(t, err)
	for i := 0; i < feedChannelSize; i++ {
		require.NoError(t, feed.PubOrder(context.Background(), cucina.Order{ID: "fill"}))
	}

	// Act: a publish racing the subscriber's disconnect. Neither side
	// may end up stuck on the other.
	published := make(chan struct{})
	unsubbed := make(chan struct{})
	go func() {
		_ = feed.PubOrder(context.Background(), cucina.Order{ID: "ord-overflow"})
		close(published)
	}()
	go func() {
		_ = feed.UnsubLiveOrders(context.Background(), flusher)
		close(unsubbed)
	}()

	// Assert
	for _, done := range []chan struct{}{published, unsubbed} {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("feed blocked on a subscriber that stopped reading")
		}
	}
}

func TestGoChannelFeedUnsubStopsDelivery(t *testing.T) {
	feed := NewGoChannelOrderFeed()
	flusher := httptest.NewRecorder()

	_, err := feed.SubLiveOrders(context.Background(), flusher)
	require.NoError(t, err)
	require.NoError(t, feed.UnsubLiveOrders(context.Background(), flusher))

	// Publishing with no subscribers must not block.
	done := make(chan struct{})
	go func() {
		_ = feed.PubOrder(context.Background(), cucina.Order{ID: "ord-2"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked after unsubscribe")
	}
}
