package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-dialogue/internal/dialogue"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/logging"
)

// WebSocket message types.
const (
	WSTypeStart       = "start"
	WSTypeTurn        = "turn"
	WSTypeConfirm     = "confirm"
	WSTypeSubmit      = "submit"
	WSTypeEnd         = "end"
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeReply       = "reply"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// ChannelConversationTurn carries every turn outcome of every conversation.
	ChannelConversationTurn = "conversation.turn"

	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256

	// wsRequestTimeout bounds a dialogue call made on behalf of a client.
	wsRequestTimeout = 10 * time.Second
)

// WSMessage represents a message sent to/from a WebSocket client.
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	EventType string          `json:"event_type,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// wsOutbound is a message written to a client.
type wsOutbound struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload for subscribe/unsubscribe messages.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// WSConversationPayload is the payload of the dialogue message types.
// Each type reads the fields it needs.
type WSConversationPayload struct {
	ConversationID string         `json:"conversation_id,omitempty"`
	Form           string         `json:"form,omitempty"`
	SatelliteID    string         `json:"satellite_id,omitempty"`
	Input          dialogue.Input `json:"input"`
	Confirm        bool           `json:"confirm,omitempty"`
}

// TurnEvent is broadcast on ChannelConversationTurn.
type TurnEvent struct {
	Conversation dialogue.Conversation `json:"conversation"`
	Outcome      dialogue.Outcome      `json:"outcome"`
	ErrorCode    string                `json:"error_code,omitempty"`
}

// Hub manages WebSocket connections and broadcasts events.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	subscriptions map[string]struct{}
	mu            sync.RWMutex
	dialogue      *dialogue.Service
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a new WebSocket hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run starts the hub's main loop. It blocks until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", h.ClientCount())
}

// Unregister removes a client from the hub.
// Only the goroutine that removes the client from the map closes the send
// channel.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.logger.Debug("websocket client disconnected", "clients", h.ClientCount())
}

// Broadcast sends an event to all clients subscribed to the given channel.
// The hub lock is released before per-client subscription checks.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(wsOutbound{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	sentCount := 0
	for _, client := range clients {
		if client.isSubscribed(channel) {
			client.trySend(data)
			sentCount++
		}
	}
	if sentCount > 0 {
		h.logger.Debug("broadcast sent", "channel", channel, "recipients", sentCount)
	}
}

// ObserveTurn broadcasts a turn outcome on ChannelConversationTurn.
func (h *Hub) ObserveTurn(conv dialogue.Conversation, out dialogue.Outcome) {
	h.Broadcast(ChannelConversationTurn, TurnEvent{
		Conversation: conv,
		Outcome:      out,
		ErrorCode:    outcomeCode(out.Err),
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
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
}

// handleWebSocket upgrades the HTTP connection to a WebSocket connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
		dialogue:      s.dialogue,
	}

	s.hub.Register(client)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// readPump reads messages from the WebSocket connection.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Any client message resets the read deadline.
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming WebSocket message.
func (c *WSClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(msg.ID, ErrCodeBadRequest, "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeStart, WSTypeTurn, WSTypeConfirm, WSTypeSubmit, WSTypeEnd:
		c.handleConversation(msg)
	case WSTypeSubscribe:
		c.handleSubscribe(msg, true)
	case WSTypeUnsubscribe:
		c.handleSubscribe(msg, false)
	case WSTypePing:
		c.sendResponse(msg.ID, WSTypePong, nil)
	default:
		c.sendError(msg.ID, ErrCodeBadRequest, "unknown message type: "+msg.Type)
	}
}

// handleConversation runs one dialogue operation and replies with its result.
func (c *WSClient) handleConversation(msg WSMessage) {
	var p WSConversationPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendError(msg.ID, ErrCodeBadRequest, "invalid conversation payload")
			return
		}
	}
	if msg.Type != WSTypeStart && p.ConversationID == "" {
		c.sendError(msg.ID, ErrCodeBadRequest, "conversation_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), wsRequestTimeout)
	defer cancel()

	var (
		reply dialogue.Reply
		err   error
	)
	switch msg.Type {
	case WSTypeStart:
		reply, err = startConversation(ctx, c.dialogue, p.Form, p.SatelliteID, p.Input)
	case WSTypeTurn:
		reply, err = c.dialogue.Turn(ctx, p.ConversationID, p.Input)
	case WSTypeConfirm:
		reply, err = c.dialogue.Confirm(ctx, p.ConversationID, p.Confirm)
	case WSTypeSubmit:
		reply, err = c.dialogue.Submit(ctx, p.ConversationID)
	case WSTypeEnd:
		if err = c.dialogue.End(p.ConversationID); err == nil {
			c.sendResponse(msg.ID, WSTypeResponse, map[string]string{"ended": p.ConversationID})
			return
		}
	}
	if err != nil {
		_, code := dialogueError(err)
		c.sendError(msg.ID, code, err.Error())
		return
	}
	c.sendResponse(msg.ID, WSTypeReply, newReplyResponse(reply))
}

// handleSubscribe adds channels to or removes them from the client's
// subscription list.
func (c *WSClient) handleSubscribe(msg WSMessage, subscribe bool) {
	var sub WSSubscribePayload
	if err := json.Unmarshal(msg.Payload, &sub); err != nil {
		c.sendError(msg.ID, ErrCodeBadRequest, "invalid subscribe payload")
		return
	}

	c.mu.Lock()
	for _, ch := range sub.Channels {
		if subscribe {
			c.subscriptions[ch] = struct{}{}
		} else {
			delete(c.subscriptions, ch)
		}
	}
	c.mu.Unlock()

	if subscribe {
		c.hub.logger.Info("websocket client subscribed", "channels", sub.Channels)
		c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"subscribed": sub.Channels})
		return
	}
	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"unsubscribed": sub.Channels})
}

// trySend attempts to send data to the client's send channel.
// It silently handles closed channels (client disconnected during broadcast)
// and full buffers (slow client).
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		// Client buffer full, skip
	}
}

// isSubscribed checks if the client is subscribed to a channel.
func (c *WSClient) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscriptions[channel]
	return ok
}

// sendResponse sends a response message to the client.
func (c *WSClient) sendResponse(id, msgType string, payload any) {
	data, err := json.Marshal(wsOutbound{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

// sendError sends an error message to the client.
func (c *WSClient) sendError(id, code, message string) {
	c.sendResponse(id, WSTypeError, map[string]string{"code": code, "message": message})
}
