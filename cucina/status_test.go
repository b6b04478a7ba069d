package cucina

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusReady, false},
		{StatusPending, StatusDelivered, false},
		{StatusConfirmed, StatusPreparing, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusPreparing, StatusReady, true},
		{StatusPreparing, StatusCancelled, true},
		{StatusPreparing, StatusDelivered, false},
		{StatusReady, StatusDelivered, true},
		{StatusReady, StatusCancelled, false},
		{StatusDelivered, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.Empty(t, StatusDelivered.AllowedNext())
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus("preparing")
	require.NoError(t, err)
	assert.Equal(t, StatusPreparing, status)

	_, err = ParseStatus("on-fire")
	assert.Error(t, err)

	_, err = ParseStatus("")
	assert.Error(t, err)
}
