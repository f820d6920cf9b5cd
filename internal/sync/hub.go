package sync

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"bookreviews/pkg/metrics"
)

const (
	writeTimeout = 2 * time.Second
	queueSize    = 256
)

// Hub fans change events out to TCP and websocket subscribers whose filter
// matches the event's topics.
type Hub struct {
	mu        sync.Mutex
	clients   map[net.Conn]Filter
	wsClients map[*websocket.Conn]Filter

	events chan Event
	logger *slog.Logger
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
	Queued     int `json:"queued_events"`
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:   make(map[net.Conn]Filter),
		wsClients: make(map[*websocket.Conn]Filter),
		events:    make(chan Event, queueSize),
		logger:    logger.With(slog.String("component", "sync-hub")),
	}
}

// Run delivers queued events in publish order until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.events:
			h.Broadcast(ev)
		}
	}
}

// Publish queues ev for delivery by Run. A full queue drops the event.
func (h *Hub) Publish(ev Event) {
	select {
	case h.events <- ev:
	default:
		h.logger.Warn("event queue full, dropping event", slog.String("type", ev.Type))
	}
}

func (h *Hub) Add(conn net.Conn, topics ...string) {
	h.mu.Lock()
	h.clients[conn] = NewFilter(topics...)
	h.updateGauges()
	h.mu.Unlock()
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.updateGauges()
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) AddWS(ws *websocket.Conn, topics ...string) {
	h.mu.Lock()
	h.wsClients[ws] = NewFilter(topics...)
	h.updateGauges()
	h.mu.Unlock()
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.wsClients, ws)
	h.updateGauges()
	h.mu.Unlock()
	_ = ws.Close()
}

// Subscribe replaces the topic filter of a TCP client and acknowledges it.
// The ack is written under the hub lock so it never interleaves with a
// broadcast.
func (h *Hub) Subscribe(conn net.Conn, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; !ok {
		return
	}
	f := NewFilter(topics...)
	h.clients[conn] = f
	if err := writeLine(conn, subscribedLine(f)); err != nil {
		h.dropTCP(conn)
	}
}

func (h *Hub) SubscribeWS(ws *websocket.Conn, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.wsClients[ws]; !ok {
		return
	}
	f := NewFilter(topics...)
	h.wsClients[ws] = f
	_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := ws.WriteMessage(websocket.TextMessage, subscribedLine(f)); err != nil {
		h.dropWS(ws)
	}
}

// Broadcast writes ev to every matching subscriber now. Subscribers that
// fail a write are dropped.
func (h *Hub) Broadcast(ev Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", slog.String("error", err.Error()))
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for c, f := range h.clients {
		if !f.Match(ev) {
			continue
		}
		if err := writeLine(c, b); err != nil {
			h.logger.Debug("tcp subscriber write failed", slog.String("remote", c.RemoteAddr().String()), slog.String("error", err.Error()))
			h.dropTCP(c)
		}
	}

	for ws, f := range h.wsClients {
		if !f.Match(ev) {
			continue
		}
		_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			h.dropWS(ws)
		}
	}
	h.updateGauges()
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.clients),
		WSClients:  len(h.wsClients),
		Queued:     len(h.events),
	}
}

type welcomeMessage struct {
	Type      string `json:"type"`
	Transport string `json:"transport"`
	Clients   int    `json:"clients"`
}

func (h *Hub) Welcome(conn net.Conn) {
	b, _ := json.Marshal(welcomeMessage{Type: "welcome", Transport: "tcp", Clients: h.Count()})
	_ = writeLine(conn, append(b, '\n'))
}

// caller holds h.mu
func (h *Hub) dropTCP(c net.Conn) {
	_ = c.Close()
	delete(h.clients, c)
}

// caller holds h.mu
func (h *Hub) dropWS(ws *websocket.Conn) {
	_ = ws.Close()
	delete(h.wsClients, ws)
}

// caller holds h.mu
func (h *Hub) updateGauges() {
	metrics.LiveSubscribers.WithLabelValues("tcp").Set(float64(len(h.clients)))
	metrics.LiveSubscribers.WithLabelValues("ws").Set(float64(len(h.wsClients)))
}

func writeLine(c net.Conn, b []byte) error {
	_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := c.Write(b)
	return err
}

func subscribedLine(f Filter) []byte {
	b, _ := json.Marshal(SubscribeMessage{Type: "subscribed", Topics: f.Topics()})
	return append(b, '\n')
}
