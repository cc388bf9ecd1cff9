// Package broadcast pushes extraction results to connected dashboards over
// websocket.
package broadcast

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/store"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

// Event names sent to clients
const (
	EventInitState = "init-state"
	EventNewCode   = "new-code"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

// Event is the envelope of every websocket frame
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type subscriber struct {
	send chan Event
}

// Hub keeps the connected clients and fans results out to them
type Hub struct {
	store    store.Store
	upgrader websocket.Upgrader
	origins  map[string]struct{}
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[*subscriber]struct{}
}

// NewHub creates a hub. New clients receive the cached results of st first.
// Browsers may connect from the serving host or from one of allowedOrigins
// ("https://dash.example.com"); requests without an Origin header are
// accepted.
func NewHub(st store.Store, allowedOrigins []string, logger *slog.Logger) *Hub {
	h := &Hub{
		store:   st,
		origins: make(map[string]struct{}, len(allowedOrigins)),
		logger:  logger.With("component", "broadcast"),
		clients: make(map[*subscriber]struct{}),
	}
	for _, origin := range allowedOrigins {
		if origin = normalizeOrigin(origin); origin != "" {
			h.origins[origin] = struct{}{}
		}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	if _, ok := h.origins[normalizeOrigin(origin)]; ok {
		return true
	}

	h.logger.Warn("websocket origin rejected", "origin", origin, "host", r.Host)
	return false
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}

// Publish sends a new-code event to every client. Slow clients drop the event.
func (h *Hub) Publish(ctx context.Context, result *models.ExtractionResult) {
	ev := Event{Event: EventNewCode, Data: result}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.clients {
		select {
		case sub.send <- ev:
		default:
			h.logger.Warn("dropped event due to full buffer", "recipient", result.Recipient)
		}
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) subscribe() *subscriber {
	sub := &subscriber{send: make(chan Event, sendBuffer)}

	h.mu.Lock()
	h.clients[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[sub]; ok {
		delete(h.clients, sub)
		close(sub.send)
	}
}

// ServeHTTP upgrades the request and streams events until the client leaves
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	// Subscribe before reading the snapshot so nothing published in between is lost
	sub := h.subscribe()

	results, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list results", "error", err)
		results = []*models.ExtractionResult{}
	}
	if results == nil {
		results = []*models.ExtractionResult{}
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(Event{Event: EventInitState, Data: results}); err != nil {
		h.logger.Debug("failed to send initial state", "error", err)
		h.unsubscribe(sub)
		conn.Close()
		return
	}

	h.logger.Info("client connected", "remote", r.RemoteAddr, "clients", h.Count())

	go h.writePump(conn, sub)
	h.readPump(conn, sub)
}

// readPump discards client frames and unsubscribes once the connection closes
func (h *Hub) readPump(conn *websocket.Conn, sub *subscriber) {
	defer func() {
		h.unsubscribe(sub)
		h.logger.Info("client disconnected", "clients", h.Count())
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump owns all writes after the initial state
func (h *Hub) writePump(conn *websocket.Conn, sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-sub.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
