// Package progress streams tournament progress to websocket clients.
package progress

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"credit-signal-lab/internal/observability"
	"credit-signal-lab/internal/tournament"
)

// Message types.
const (
	TypeHello    = "hello"
	TypeProgress = "progress"
	TypeRun      = "run"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards are served from other origins
	},
}

// Message is the envelope of every frame sent to clients.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hello is sent once to every new client.
type Hello struct {
	InstanceID string `json:"instance_id"`
	Clients    int    `json:"clients"`
}

// Snapshot is the wire form of tournament.Progress.
type Snapshot struct {
	RunID   string `json:"run_id"`
	Total   int    `json:"total"`
	Done    int    `json:"done"`
	Scored  int    `json:"scored"`
	Skipped int    `json:"skipped"`
}

// RunEvent announces a run status change.
type RunEvent struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Hub tracks connected clients and fans messages out to them.
type Hub struct {
	logger     arbor.ILogger
	instanceID string

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex

	// progress frames are throttled; the final frame of a run always goes out
	limiter *rate.Limiter
}

// NewHub creates a hub. interval throttles progress frames; zero disables throttling.
func NewHub(logger arbor.ILogger, interval time.Duration) *Hub {
	h := &Hub{
		logger:     logger,
		instanceID: uuid.New().String(),
		clients:    make(map[*websocket.Conn]*sync.Mutex),
	}
	if interval > 0 {
		h.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return h
}

// InstanceID identifies this server process to clients.
func (h *Hub) InstanceID() string {
	return h.instanceID
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the connection and keeps it registered until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	mutex := &sync.Mutex{}
	h.mu.Lock()
	h.clients[conn] = mutex
	count := len(h.clients)
	h.mu.Unlock()
	observability.UpdateProgressClients(count)
	h.logger.Debug().Int("clients", count).Msg("WebSocket client connected")

	h.send(conn, mutex, Message{Type: TypeHello, Payload: Hello{InstanceID: h.instanceID, Clients: count}})

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		observability.UpdateProgressClients(remaining)
		h.logger.Debug().Int("clients", remaining).Msg("WebSocket client disconnected")
	}()

	// Clients only listen; reads keep the connection alive and detect close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}
	}
}

// Publish broadcasts a tournament progress snapshot. It satisfies
// tournament.ProgressFunc.
func (h *Hub) Publish(p tournament.Progress) {
	final := p.Total > 0 && p.Done >= p.Total
	if h.limiter != nil && !final && !h.limiter.Allow() {
		return
	}
	h.Broadcast(Message{Type: TypeProgress, Payload: Snapshot{
		RunID:   p.RunID,
		Total:   p.Total,
		Done:    p.Done,
		Scored:  p.Scored,
		Skipped: p.Skipped,
	}})
}

// PublishRun broadcasts a run status change.
func (h *Hub) PublishRun(runID, status string, runErr error) {
	ev := RunEvent{RunID: runID, Status: status}
	if runErr != nil {
		ev.Error = runErr.Error()
	}
	h.Broadcast(Message{Type: TypeRun, Payload: ev})
}

// Broadcast sends msg to every connected client. Write failures are logged
// and the client is left for its read loop to remove.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn, mutex := range h.clients {
		clients = append(clients, conn)
		mutexes = append(mutexes, mutex)
	}
	h.mu.RUnlock()

	for i, conn := range clients {
		mutexes[i].Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutexes[i].Unlock()

		if err != nil {
			h.logger.Warn().Err(err).Str("type", msg.Type).Msg("Failed to send message to client")
		}
	}
}

func (h *Hub) send(conn *websocket.Conn, mutex *sync.Mutex, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		return
	}
	mutex.Lock()
	defer mutex.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Warn().Err(err).Str("type", msg.Type).Msg("Failed to send message to client")
	}
}
