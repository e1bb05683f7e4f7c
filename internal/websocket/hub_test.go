package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"design-analysis-be/internal/pkg/logger"
	"design-analysis-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func attach(hub *Hub, userId uuid.UUID) *Client {
	c := &Client{Hub: hub, UserID: userId, Send: make(chan []byte, 4)}
	hub.register <- c
	return c
}

func TestHub_PublishRoutesToOwner(t *testing.T) {
	hub := startHub(t)
	owner, other := uuid.New(), uuid.New()
	mine := attach(hub, owner)
	theirs := attach(hub, other)
	require.Eventually(t, func() bool { return hub.ConnectedClients(owner) == 1 }, time.Second, 5*time.Millisecond)

	sessionId := uuid.New()
	err := hub.Publish(context.Background(), events.NewAnalysisEvent(events.AnalysisCompleted, sessionId, owner, 2, map[string]interface{}{"score": 88}))
	require.NoError(t, err)

	select {
	case raw := <-mine.Send:
		var got frame
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, events.AnalysisCompleted, got.Type)
		assert.Equal(t, sessionId.String(), got.Data["session_id"])
		assert.EqualValues(t, 2, got.Data["attempt"])
	case <-time.After(time.Second):
		t.Fatal("owner did not receive the event")
	}
	assert.Empty(t, theirs.Send)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := startHub(t)
	userId := uuid.New()
	c := attach(hub, userId)
	hub.unregister <- c

	_, open := <-c.Send
	assert.False(t, open)
	assert.Equal(t, 0, hub.ConnectedClients(userId))
}

func TestHub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := startHub(t)
	userId := uuid.New()
	c := attach(hub, userId)
	require.Eventually(t, func() bool { return hub.ConnectedClients(userId) == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < cap(c.Send)+3; i++ {
		require.NoError(t, hub.Publish(context.Background(), events.NewAnalysisEvent(events.AnalysisFailed, uuid.New(), userId, 1, nil)))
	}
	assert.Len(t, c.Send, cap(c.Send))
}

func TestHub_IgnoresEventsWithoutOwner(t *testing.T) {
	hub := startHub(t)
	err := hub.Publish(context.Background(), events.BaseEvent{Type: "other", Data: map[string]interface{}{}})
	assert.NoError(t, err)
}
