package progress

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"credit-signal-lab/internal/tournament"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(hub)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestHub_HelloCarriesInstanceID(t *testing.T) {
	hub := NewHub(arbor.NewLogger(), 0)
	conn := dial(t, hub)

	f := readFrame(t, conn)
	require.Equal(t, TypeHello, f.Type)

	var hello Hello
	require.NoError(t, json.Unmarshal(f.Payload, &hello))
	assert.Equal(t, hub.InstanceID(), hello.InstanceID)
	assert.Equal(t, 1, hello.Clients)
	assert.Equal(t, 1, hub.Clients())
}

func TestHub_PublishBroadcastsProgress(t *testing.T) {
	hub := NewHub(arbor.NewLogger(), 0)
	a := dial(t, hub)
	b := dial(t, hub)
	readFrame(t, a)
	readFrame(t, b)

	var publish tournament.ProgressFunc = hub.Publish
	publish(tournament.Progress{RunID: "run-1", Total: 10, Done: 4, Scored: 3, Skipped: 1})

	for _, conn := range []*websocket.Conn{a, b} {
		f := readFrame(t, conn)
		require.Equal(t, TypeProgress, f.Type)
		var snap Snapshot
		require.NoError(t, json.Unmarshal(f.Payload, &snap))
		assert.Equal(t, Snapshot{RunID: "run-1", Total: 10, Done: 4, Scored: 3, Skipped: 1}, snap)
	}
}

func TestHub_ThrottleAlwaysSendsFinalFrame(t *testing.T) {
	hub := NewHub(arbor.NewLogger(), time.Hour)
	conn := dial(t, hub)
	readFrame(t, conn)

	hub.Publish(tournament.Progress{RunID: "r", Total: 3, Done: 1, Scored: 1})
	hub.Publish(tournament.Progress{RunID: "r", Total: 3, Done: 2, Scored: 2}) // throttled
	hub.Publish(tournament.Progress{RunID: "r", Total: 3, Done: 3, Scored: 3})

	var done []int
	for range 2 {
		f := readFrame(t, conn)
		var snap Snapshot
		require.NoError(t, json.Unmarshal(f.Payload, &snap))
		done = append(done, snap.Done)
	}
	assert.Equal(t, []int{1, 3}, done)
}

func TestHub_PublishRun(t *testing.T) {
	hub := NewHub(arbor.NewLogger(), 0)
	conn := dial(t, hub)
	readFrame(t, conn)

	hub.PublishRun("run-9", "FAILED", errors.New("no asset column"))

	f := readFrame(t, conn)
	require.Equal(t, TypeRun, f.Type)
	var ev RunEvent
	require.NoError(t, json.Unmarshal(f.Payload, &ev))
	assert.Equal(t, RunEvent{RunID: "run-9", Status: "FAILED", Error: "no asset column"}, ev)
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub := NewHub(arbor.NewLogger(), 0)
	conn := dial(t, hub)
	readFrame(t, conn)
	require.Equal(t, 1, hub.Clients())

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
}
