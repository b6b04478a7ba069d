package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taldoflemis/trattoria/cucina"
)

func boardWith(orders ...cucina.Order) *AdminBoard {
	board := NewAdminBoard()
	board.ReplaceAll(orders)
	return board
}

func TestSnapshotPreservesListingOrder(t *testing.T) {
	// Arrange
	board := boardWith(
		cucina.Order{ID: "ord-3", Status: cucina.StatusPending},
		cucina.Order{ID: "ord-1", Status: cucina.StatusDelivered},
		cucina.Order{ID: "ord-2", Status: cucina.StatusPreparing},
	)

	// Act
	snapshot := board.Snapshot()

	// Assert
	require.Len(t, snapshot, 3)
	assert.Equal(t, "ord-3", snapshot[0].ID)
	assert.Equal(t, "ord-1", snapshot[1].ID)
	assert.Equal(t, "ord-2", snapshot[2].ID)
}

func TestBeginUpdateAppliesOptimistically(t *testing.T) {
	board := boardWith(cucina.Order{ID: "ord-1", Status: cucina.StatusPending})

	require.NoError(t, board.BeginUpdate("ord-1", cucina.StatusConfirmed))

	order, ok := board.Get("ord-1")
	require.True(t, ok)
	assert.Equal(t, cucina.StatusConfirmed, order.Status)
}

func TestRevertRestoresPreviousStatus(t *testing.T) {
	// Arrange
	board := boardWith(cucina.Order{ID: "ord-1", Status: cucina.StatusPending})
	require.NoError(t, board.BeginUpdate("ord-1", cucina.StatusConfirmed))

	// Act
	board.Revert("ord-1")

	// Assert
	order, ok := board.Get("ord-1")
	require.True(t, ok)
	assert.Equal(t, cucina.StatusPending, order.Status)

	// The slot is free again after a revert.
	assert.NoError(t, board.BeginUpdate("ord-1", cucina.StatusConfirmed))
}

func TestConfirmKeepsNewStatus(t *testing.T) {
	board := boardWith(cucina.Order{ID: "ord-1", Status: cucina.StatusPending})
	require.NoError(t, board.BeginUpdate("ord-1", cucina.StatusConfirmed))

	board.Confirm("ord-1")

	order, _ := board.Get("ord-1")
	assert.Equal(t, cucina.StatusConfirmed, order.Status)
	// A revert after confirmation must be a no-op.
	board.Revert("ord-1")
	order, _ = board.Get("ord-1")
	assert.Equal(t, cucina.StatusConfirmed, order.Status)
}

func TestBeginUpdateRejectsConcurrentAndUnknown(t *testing.T) {
	board := boardWith(cucina.Order{ID: "ord-1", Status: cucina.StatusPending})

	require.NoError(t, board.BeginUpdate("ord-1", cucina.StatusConfirmed))
	assert.ErrorIs(t, board.BeginUpdate("ord-1", cucina.StatusCancelled), ErrUpdateInFlight)
	assert.ErrorIs(t, board.BeginUpdate("ord-404", cucina.StatusConfirmed), ErrUnknownOrder)
}

func TestBeginUpdateChecksTransitionAgainstCurrentBoard(t *testing.T) {
	// Arrange: a competing update lands first and gets confirmed.
	board := boardWith(cucina.Order{ID: "ord-1", Status: cucina.StatusReady})
	require.NoError(t, board.BeginUpdate("ord-1", cucina.StatusDelivered))
	board.Confirm("ord-1")

	// Act: a caller that still believes the order is ready tries to
	// cancel it. The board, not the caller's stale read, decides.
	err := board.BeginUpdate("ord-1", cucina.StatusCancelled)

	// Assert
	var transitionErr *TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, cucina.StatusDelivered, transitionErr.From)
	assert.Equal(t, cucina.StatusCancelled, transitionErr.To)

	order, _ := board.Get("ord-1")
	assert.Equal(t, cucina.StatusDelivered, order.Status)
}
