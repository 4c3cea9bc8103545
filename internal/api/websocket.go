package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-simlock/internal/action"
	"github.com/nerrad567/gray-logic-simlock/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-simlock/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-simlock/internal/metrics"
)

// Websocket message types.
const (
	WSTypeSetProperty    = "setProperty"
	WSTypeRequestAction  = "requestAction"
	WSTypePropertyStatus = "propertyStatus"
	WSTypeActionStatus   = "actionStatus"
	WSTypeError          = "error"

	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256
)

// WSMessage is a message sent to or from a websocket client.
type WSMessage struct {
	MessageType string          `json:"messageType"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// Hub tracks websocket clients and fans device events out to all of them.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient is one connected websocket client.
type WSClient struct {
	hub    *Hub
	server *Server
	conn   *websocket.Conn
	send   chan []byte
}

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(n))
	h.logger.Debug("websocket client connected", "clients", n)
}

// Unregister removes a client. Only the call that actually removes it
// closes its send channel.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	metrics.WebSocketClients.Set(float64(n))
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// Broadcast sends one message to every client.
func (h *Hub) Broadcast(messageType string, data any) {
	msg, err := encodeMessage(messageType, data)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "type", messageType, "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.trySend(msg)
	}
}

// BroadcastProperty is a lock.PropertyObserver sending propertyStatus.
func (h *Hub) BroadcastProperty(name string, value any) {
	h.Broadcast(WSTypePropertyStatus, map[string]any{name: value})
}

// BroadcastAction is an action.StatusObserver sending actionStatus.
func (h *Hub) BroadcastAction(a action.Action) {
	h.Broadcast(WSTypeActionStatus, actionBody(a))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
	metrics.WebSocketClients.Set(0)
}

func encodeMessage(messageType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WSMessage{MessageType: messageType, Data: raw})
}

// handleWebSocket upgrades the connection and starts the client pumps.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.isAllowedOrigin(origin)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:    s.hub,
		server: s,
		conn:   conn,
		send:   make(chan []byte, wsSendBufferSize),
	}
	s.hub.Register(client)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	if cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	}
	deadline := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	//nolint:errcheck // best-effort deadline
	c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		//nolint:errcheck // best-effort deadline
		c.conn.SetReadDeadline(time.Now().Add(deadline))
		c.handleMessage(message)
	}
}

func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	writeWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				//nolint:errcheck // best-effort close frame
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage applies one client message. Successful requests are not
// answered directly; the resulting propertyStatus and actionStatus
// broadcasts reach this client like every other.
func (c *WSClient) handleMessage(raw []byte) {
	var msg WSMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError(http.StatusBadRequest, "parsing request failed")
		return
	}

	var data map[string]json.RawMessage
	if err := json.Unmarshal(msg.Data, &data); err != nil || data == nil {
		c.sendError(http.StatusBadRequest, "data must be an object")
		return
	}

	switch msg.MessageType {
	case WSTypeSetProperty:
		for name, value := range data {
			if err := c.server.device.SetProperty(name, value); err != nil {
				status, _ := statusForError(err)
				c.sendError(status, err.Error())
			}
		}
	case WSTypeRequestAction:
		name, input, err := parseActionRequest(data)
		if err != nil {
			c.sendError(http.StatusBadRequest, err.Error())
			return
		}
		req := action.Request{Name: name, Input: input, Source: sourceWebSocket}
		if _, err := c.server.dispatcher.Submit(context.Background(), req); err != nil {
			status, _ := statusForError(err)
			c.sendError(status, err.Error())
		}
	default:
		c.sendError(http.StatusBadRequest, "unknown messageType: "+msg.MessageType)
	}
}

// trySend queues data for the client, dropping it if the client is slow
// or already gone.
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // send on a channel closed by Unregister
	}()

	select {
	case c.send <- data:
	default:
	}
}

func (c *WSClient) sendError(status int, message string) {
	msg, err := encodeMessage(WSTypeError, map[string]string{
		"status":  fmt.Sprintf("%d %s", status, http.StatusText(status)),
		"message": message,
	})
	if err != nil {
		return
	}
	c.trySend(msg)
}
