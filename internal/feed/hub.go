// Package feed pushes recipe activity to TCP and WebSocket listeners as
// newline-delimited JSON.
package feed

import (
	"net"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"recipehub/pkg/logger"
)

const (
	writeTimeout = 2 * time.Second
	// queueSize events may wait per listener before it counts as stalled
	// and is dropped.
	queueSize = 64
)

// listener owns the only goroutine that writes to its connection once the
// welcome line has gone out.
type listener struct {
	send  chan []byte
	write func([]byte) error
	close func() error
}

func (l *listener) run(log *logger.Logger) {
	failed := false
	for b := range l.send {
		if failed {
			continue
		}
		if err := l.write(b); err != nil {
			log.Debug("feed write failed", "error", err)
			failed = true
			_ = l.close()
		}
	}
}

func (l *listener) offer(b []byte) bool {
	select {
	case l.send <- b:
		return true
	default:
		return false
	}
}

type Hub struct {
	mu        sync.Mutex
	clients   map[net.Conn]*listener
	wsClients map[*websocket.Conn]*listener
	log       *logger.Logger
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients:   make(map[net.Conn]*listener),
		wsClients: make(map[*websocket.Conn]*listener),
		log:       log,
	}
}

func (h *Hub) start(write func([]byte) error, closeFn func() error) *listener {
	l := &listener{send: make(chan []byte, queueSize), write: write, close: closeFn}
	go l.run(h.log)
	return l
}

func (h *Hub) Add(conn net.Conn) {
	l := h.start(func(b []byte) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_, err := conn.Write(b)
		return err
	}, conn.Close)

	h.mu.Lock()
	h.clients[conn] = l
	h.mu.Unlock()
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	if l, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(l.send)
	}
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) AddWS(ws *websocket.Conn) {
	l := h.start(func(b []byte) error {
		_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		return ws.WriteMessage(websocket.TextMessage, b)
	}, ws.Close)

	h.mu.Lock()
	h.wsClients[ws] = l
	h.mu.Unlock()
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	if l, ok := h.wsClients[ws]; ok {
		delete(h.wsClients, ws)
		close(l.send)
	}
	h.mu.Unlock()
	_ = ws.Close()
}

func (h *Hub) Publish(e Event) {
	h.BroadcastJSON(e)
}

// BroadcastJSON queues v for every listener without waiting on the network.
// A listener whose queue is full is disconnected.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.log.Error("feed marshal failed", "error", err)
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for c, l := range h.clients {
		if !l.offer(b) {
			h.log.Warn("dropping stalled tcp listener", "remote", c.RemoteAddr().String())
			delete(h.clients, c)
			close(l.send)
			_ = c.Close()
		}
	}
	for ws, l := range h.wsClients {
		if !l.offer(b) {
			h.log.Warn("dropping stalled ws listener", "remote", ws.RemoteAddr().String())
			delete(h.wsClients, ws)
			close(l.send)
			_ = ws.Close()
		}
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.clients),
		WSClients:  len(h.wsClients),
	}
}

type welcome struct {
	Type      string `json:"type"`
	Transport string `json:"transport"`
	Clients   int    `json:"clients"`
}

func (h *Hub) welcome(transport string) []byte {
	s := h.Stats()
	b, _ := json.Marshal(welcome{Type: "welcome", Transport: transport, Clients: s.TCPClients + s.WSClients})
	return append(b, '\n')
}

// Close disconnects every listener.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c, l := range h.clients {
		delete(h.clients, c)
		close(l.send)
		_ = c.Close()
	}
	for ws, l := range h.wsClients {
		delete(h.wsClients, ws)
		close(l.send)
		_ = ws.Close()
	}
}
