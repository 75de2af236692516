package monitoring

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaseFeedBroadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewCaseFeed(nil)
	go feed.Run(ctx)

	server := httptest.NewServer(feed)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return feed.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	feed.Publish(CaseEvent{Type: EventPrediction, CaseID: "p001", Prediction: "M", Status: "Pending Review"})

	var event CaseEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, EventPrediction, event.Type)
	assert.Equal(t, "p001", event.CaseID)
	assert.Equal(t, "M", event.Prediction)
	assert.False(t, event.Timestamp.IsZero())
}

func TestCaseFeedDropsClosedClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewCaseFeed(nil)
	go feed.Run(ctx)

	server := httptest.NewServer(feed)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return feed.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return feed.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestCaseFeedPublishWithoutClients(t *testing.T) {
	feed := NewCaseFeed(nil)
	// nobody is running the hub; Publish must still return
	for i := 0; i < 300; i++ {
		feed.Publish(CaseEvent{Type: EventFeedback, CaseID: "p001"})
	}
}
