package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, cancel
}

func join(t *testing.T, h *Hub, room string) *Client {
	t.Helper()
	before := h.RoomSize(room)
	c := NewClient(h, nil, room)
	h.Register <- c
	require.Eventually(t, func() bool { return h.RoomSize(room) == before+1 }, time.Second, time.Millisecond)
	return c
}

func TestHub_NotifyReachesOnlyTheRoom(t *testing.T) {
	h, _ := startHub(t)
	friday := join(t, h, "friday")
	other := join(t, h, "sunday")

	h.Notify("friday", MessageRevealFrame, map[string]int{"match_index": 2})

	select {
	case raw := <-friday.Send:
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]int `json:"payload"`
			RoomID  string         `json:"room_id"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, MessageRevealFrame, msg.Type)
		assert.Equal(t, "friday", msg.RoomID)
		assert.Equal(t, 2, msg.Payload["match_index"])
	case <-time.After(time.Second):
		t.Fatal("friday client got nothing")
	}

	assert.Len(t, other.Send, 0)
}

func TestHub_UnregisterClosesClient(t *testing.T) {
	h, _ := startHub(t)
	c := join(t, h, "friday")

	h.Unregister <- c
	require.Eventually(t, func() bool { return h.RoomSize("friday") == 0 }, time.Second, time.Millisecond)

	_, open := <-c.Send
	assert.False(t, open)

	// комнаты уже нет, уведомление просто теряется
	h.Notify("friday", MessageBracketUpdated, nil)
}

func TestHub_FullQueueSkipsMessage(t *testing.T) {
	h, _ := startHub(t)
	c := join(t, h, "friday")

	for i := 0; i < sendBufferSize+5; i++ {
		h.Notify("friday", MessageRevealFrame, i)
	}
	assert.Len(t, c.Send, sendBufferSize)
}

func TestHub_RunStopsWithContext(t *testing.T) {
	h, cancel := startHub(t)
	a := join(t, h, "friday")
	b := join(t, h, "sunday")

	cancel()

	for _, c := range []*Client{a, b} {
		select {
		case _, open := <-c.Send:
			assert.False(t, open)
		case <-time.After(time.Second):
			t.Fatal("client was not closed on shutdown")
		}
	}
	assert.Equal(t, 0, h.RoomSize("friday"))
}
