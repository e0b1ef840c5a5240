// Package observer streams tick reports to websocket clients.
package observer

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"colonybot/internal/loop"
)

// MessageTick is the type of messages carrying a tick report.
const MessageTick = "TICK"

const (
	clientBuffer = 16
	writeTimeout = 5 * time.Second
)

// Message is the envelope sent to clients.
type Message struct {
	Type string          `json:"type"`
	Tick loop.TickReport `json:"tick"`
}

// Logger is the logging surface of the hub; *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// Hub fans tick reports out to connected clients. A new client first
// receives the latest message. Slow clients drop messages instead of
// blocking the tick.
type Hub struct {
	logger   Logger
	upgrader websocket.Upgrader

	nextID  atomic.Uint64
	dropped atomic.Uint64

	mu      sync.Mutex
	clients map[uint64]chan []byte
	last    []byte
	closed  bool
}

var _ loop.Observer = (*Hub)(nil)

// NewHub returns an empty hub. logger may be nil.
func NewHub(logger Logger) *Hub {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[uint64]chan []byte),
	}
}

// ObserveTick broadcasts report.
func (h *Hub) ObserveTick(_ context.Context, report loop.TickReport) error {
	return h.Broadcast(Message{Type: MessageTick, Tick: report})
}

// Broadcast sends v as JSON to every client.
func (h *Hub) Broadcast(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = b
	for id, out := range h.clients {
		select {
		case out <- b:
		default:
			h.dropped.Add(1)
			h.logger.Debug("observer client lagging, message dropped", "client", id)
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns the number of messages dropped for slow clients.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, out := range h.clients {
		close(out)
		delete(h.clients, id)
	}
}

func (h *Hub) join() (uint64, chan []byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, nil, false
	}
	id := h.nextID.Add(1)
	out := make(chan []byte, clientBuffer)
	if h.last != nil {
		out <- h.last
	}
	h.clients[id] = out
	return id, out, true
}

func (h *Hub) leave(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if out, ok := h.clients[id]; ok {
		close(out)
		delete(h.clients, id)
	}
}

// Handler upgrades requests to websocket streams.
func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			h.logger.Warn("observer upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		defer conn.Close()

		id, out, ok := h.join()
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
			return
		}
		defer h.leave(id)

		// Clients send nothing; reading only detects the close.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-gone:
				return
			case <-r.Context().Done():
				return
			case b, ok := <-out:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}
	}
}
