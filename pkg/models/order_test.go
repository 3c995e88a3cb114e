package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimelineIndex(t *testing.T) {
	cases := []struct {
		status OrderStatus
		want   int
	}{
		{StatusPending, 0},
		{StatusCooking, 1},
		{StatusReady, 2},
		{StatusCompleted, 3},
		{StatusCancelled, -1},
		{OrderStatus("REFUNDED"), -1},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.status.TimelineIndex(), "status %s", tc.status)
	}
}

func TestTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusCooking.Terminal())
	assert.False(t, StatusReady.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}
