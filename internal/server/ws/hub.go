// Package ws streams pipeline updates to WebSocket clients. The hub
// implements domain.LiveStateMirror, so the scheduler pushes every published
// view straight to connected consumers without an intermediate bus.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// Channel names clients can subscribe to.
const (
	ChannelPrices        = "prices"
	ChannelGas           = "gas"
	ChannelOpportunities = "opportunities"
	ChannelExecutions    = "executions"
)

var defaultChannels = []string{
	ChannelPrices,
	ChannelGas,
	ChannelOpportunities,
	ChannelExecutions,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by the CORS middleware in front.
		return true
	},
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	subs map[string]bool
	mu   sync.RWMutex
}

// subscribeMsg is the JSON frame a client sends to manage subscriptions.
type subscribeMsg struct {
	Action   string   `json:"action"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// envelope is the frame format for every outbound message.
type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type broadcastMsg struct {
	channel string
	data    []byte
}

// Hub fans pipeline updates out to connected WebSocket clients.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan broadcastMsg
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
	logger     *slog.Logger
	mode       string
	startedAt  time.Time
}

func NewHub(mode string, logger *slog.Logger) *Hub {
	m := strings.TrimSpace(strings.ToLower(mode))
	if m == "" {
		m = "unknown"
	}
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan broadcastMsg, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     logger.With("component", "ws_hub"),
		mode:       m,
		startedAt:  time.Now().UTC(),
	}
}

// Run is the hub's event loop; it exits when the context is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("client connected", "total_clients", h.clientCount())

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("client disconnected", "total_clients", h.clientCount())

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if c.isSubscribed(msg.channel) {
					select {
					case c.send <- msg.data:
					default:
						h.logger.Warn("dropping message for slow client", "channel", msg.channel)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// SetSnapshots, SetGas, SetOpportunities and Publish implement
// domain.LiveStateMirror over the connected clients.
func (h *Hub) SetSnapshots(ctx context.Context, snaps []domain.PriceSnapshot) error {
	return h.push(ChannelPrices, snaps)
}

func (h *Hub) SetGas(ctx context.Context, gas domain.GasReading) error {
	return h.push(ChannelGas, gas)
}

func (h *Hub) SetOpportunities(ctx context.Context, opps []domain.Opportunity) error {
	return h.push(ChannelOpportunities, opps)
}

func (h *Hub) Publish(ctx context.Context, channel string, payload []byte) error {
	h.enqueue(channel, payload)
	return nil
}

// BroadcastExecution pushes one ledger entry to execution subscribers.
func (h *Hub) BroadcastExecution(entry domain.LedgerEntry) {
	_ = h.push(ChannelExecutions, entry)
}

func (h *Hub) push(channel string, payload any) error {
	data, err := json.Marshal(envelope{Type: channel, Payload: payload})
	if err != nil {
		return err
	}
	h.enqueue(channel, data)
	return nil
}

func (h *Hub) enqueue(channel string, data []byte) {
	select {
	case h.broadcast <- broadcastMsg{channel: channel, data: data}:
	default:
		h.logger.Warn("broadcast queue full, dropping update", "channel", channel)
	}
}

// HandleWS upgrades the request and registers the client.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool, len(defaultChannels)),
	}
	for _, ch := range defaultChannels {
		c.subs[ch] = true
	}

	h.register <- c
	c.sendHello()

	go c.writePump()
	go c.readPump()
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close", "error", err)
			}
			return
		}

		var sub subscribeMsg
		if err := json.Unmarshal(message, &sub); err == nil && sub.Action != "" {
			c.handleSubscription(sub)
		}
	}
}

func (c *client) handleSubscription(msg subscribeMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Action {
	case "subscribe":
		for _, ch := range msg.Channels {
			c.subs[ch] = true
		}
	case "unsubscribe":
		for _, ch := range msg.Channels {
			delete(c.subs, ch)
		}
	}
}

// sendHello confirms the connection before any pipeline event flows.
func (c *client) sendHello() {
	msg, err := json.Marshal(envelope{
		Type: "hello",
		Payload: map[string]any{
			"mode":           c.hub.mode,
			"uptime_seconds": int64(time.Since(c.hub.startedAt).Seconds()),
			"channels":       defaultChannels,
		},
	})
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *client) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subs[channel]
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
