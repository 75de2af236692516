package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type EventType string

const (
	EventPrediction EventType = "prediction"
	EventFeedback   EventType = "feedback"
)

// CaseEvent tells dashboard clients that a case was created or reviewed.
type CaseEvent struct {
	Type       EventType `json:"type"`
	CaseID     string    `json:"case_id"`
	Prediction string    `json:"prediction,omitempty"`
	Status     string    `json:"status"`
	Resolution string    `json:"resolution,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type client struct {
	conn     *websocket.Conn
	send     chan []byte
	clientID string
}

// CaseFeed broadcasts case events to connected websocket clients. Clients
// that cannot keep up are dropped.
type CaseFeed struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

func NewCaseFeed(logger *zap.Logger) *CaseFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaseFeed{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

// Run dispatches events until ctx is cancelled.
func (f *CaseFeed) Run(ctx context.Context) {
	defer close(f.done)
	for {
		select {
		case c := <-f.register:
			f.mu.Lock()
			f.clients[c] = true
			total := len(f.clients)
			f.mu.Unlock()
			f.logger.Info("feed client connected", zap.String("client_id", c.clientID), zap.Int("total", total))

		case c := <-f.unregister:
			f.mu.Lock()
			if _, ok := f.clients[c]; ok {
				delete(f.clients, c)
				close(c.send)
			}
			total := len(f.clients)
			f.mu.Unlock()
			f.logger.Info("feed client disconnected", zap.String("client_id", c.clientID), zap.Int("total", total))

		case message := <-f.broadcast:
			f.mu.Lock()
			for c := range f.clients {
				select {
				case c.send <- message:
				default:
					close(c.send)
					delete(f.clients, c)
				}
			}
			f.mu.Unlock()

		case <-ctx.Done():
			f.mu.Lock()
			for c := range f.clients {
				close(c.send)
				delete(f.clients, c)
			}
			f.mu.Unlock()
			return
		}
	}
}

// Publish queues event for every client without blocking the caller.
func (f *CaseFeed) Publish(event CaseEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		f.logger.Error("encode case event", zap.Error(err))
		return
	}
	select {
	case f.broadcast <- payload:
	default:
		f.logger.Warn("case feed queue is full, dropping event", zap.String("case_id", event.CaseID))
	}
}

func (f *CaseFeed) Clients() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

func (f *CaseFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 256), clientID: uuid.NewString()}

	select {
	case f.register <- c:
	case <-f.done:
		conn.Close()
		return
	}
	go f.writePump(c)
	go f.readPump(c)
}

func (f *CaseFeed) writePump(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				f.logger.Debug("feed write failed", zap.String("client_id", c.clientID), zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only watches for the client going away; clients send nothing.
func (f *CaseFeed) readPump(c *client) {
	defer func() {
		select {
		case f.unregister <- c:
		case <-f.done:
		}
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				f.logger.Debug("feed read failed", zap.String("client_id", c.clientID), zap.Error(err))
			}
			return
		}
	}
}
