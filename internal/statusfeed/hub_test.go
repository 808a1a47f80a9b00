package statusfeed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	hub := NewHub()

	framesA, unsubA := hub.Subscribe("user-a")
	defer unsubA()
	framesB, unsubB := hub.Subscribe("user-b")
	defer unsubB()

	hub.Broadcast(Frame{Type: FrameSystemUpdate})

	require.Len(t, framesA, 1)
	require.Len(t, framesB, 1)
	assert.Equal(t, FrameSystemUpdate, (<-framesA).Type)
	assert.Equal(t, FrameSystemUpdate, (<-framesB).Type)
}

func TestHub_SendToTargetsOneUser(t *testing.T) {
	hub := NewHub()

	framesA, unsubA := hub.Subscribe("user-a")
	defer unsubA()
	framesB, unsubB := hub.Subscribe("user-b")
	defer unsubB()

	hub.SendTo("user-a", Frame{Type: FrameNotification})

	assert.Len(t, framesA, 1)
	assert.Len(t, framesB, 0)
}

func TestHub_SlowConsumerDropsFrames(t *testing.T) {
	hub := NewHub()

	frames, unsub := hub.Subscribe("user-a")
	defer unsub()

	// Overfill the subscriber buffer; Broadcast must not block.
	for i := 0; i < 50; i++ {
		hub.Broadcast(Frame{Type: FrameSystemUpdate})
	}
	assert.Equal(t, 16, len(frames))
}

func TestHub_UnsubscribeClosesChannelAndIsIdempotent(t *testing.T) {
	hub := NewHub()

	frames, unsub := hub.Subscribe("user-a")
	assert.Equal(t, 1, hub.ClientCount())

	unsub()
	unsub()
	assert.Equal(t, 0, hub.ClientCount())

	_, open := <-frames
	assert.False(t, open)

	// Broadcasting after unsubscribe must not panic on the closed channel.
	hub.Broadcast(Frame{Type: FrameSystemUpdate})
}
