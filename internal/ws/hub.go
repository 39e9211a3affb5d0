// Package ws pushes recorded match events to connected clients over
// websockets. Delivery is best-effort: a slow client is dropped, not
// waited on.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// EventMessage is the wire format broadcast to clients.
type EventMessage struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Client is one connected websocket consumer, optionally filtered to
// a set of match IDs.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	matches map[string]bool
}

// Hub fans broadcast messages out to registered clients.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	broadcast  chan EventMessage
	register   chan *Client
	unregister chan *Client
}

// NewHub creates a Hub. Run must be started on its own goroutine.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan EventMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes register/unregister/broadcast traffic until the
// process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				slog.Error("marshal ws message", "error", err)
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(msg) {
					continue
				}
				select {
				case client.send <- data:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a message for all interested clients. Never
// blocks; if the hub's queue is full the message is dropped.
func (h *Hub) Broadcast(msg EventMessage) {
	select {
	case h.broadcast <- msg:
	default:
		slog.Warn("ws broadcast queue full, message dropped", "match_id", msg.MatchID)
	}
}

func (c *Client) wants(msg EventMessage) bool {
	if len(c.matches) == 0 {
		return true
	}
	return c.matches[msg.MatchID]
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// HandleWS upgrades the request and registers the client. Match
// filters come from a repeated "match_id" query parameter.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	matches := make(map[string]bool)
	for _, id := range r.URL.Query()["match_id"] {
		matches[id] = true
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, 64),
		matches: matches,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
	return nil
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// readPump discards inbound frames; its job is to notice the close.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
