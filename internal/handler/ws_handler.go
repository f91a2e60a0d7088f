package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"exposure-server/internal/service"
	"exposure-server/shared/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// streamMessage is one frame of the event stream. The first frame is always a snapshot.
type streamMessage struct {
	Type     string                  `json:"type"`
	Snapshot *models.SessionSnapshot `json:"snapshot,omitempty"`
	Event    *models.SessionEvent    `json:"event,omitempty"`
}

const (
	streamSnapshot = "snapshot"
	streamEvent    = "event"
)

// WebSocketHandler streams session events to connected devices.
type WebSocketHandler struct {
	registry *service.SessionRegistry
	manager  *ConnectionManager
	upgrader websocket.Upgrader
	buffer   int
	logger   *zap.Logger
}

// NewWebSocketHandler creates the handler. allowedOrigins of ["*"] accepts any origin.
func NewWebSocketHandler(registry *service.SessionRegistry, manager *ConnectionManager, allowedOrigins []string, buffer int, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		registry: registry,
		manager:  manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		buffer: buffer,
		logger: logger.Named("WebSocketHandler"),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// RegisterRoutes mounts the event stream.
func (h *WebSocketHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/ws/sessions/:patientId", h.ServeWS)
}

// ServeWS upgrades the request and streams the patient's session events until either side closes.
func (h *WebSocketHandler) ServeWS(c *gin.Context) {
	patientID := c.Param("patientId")
	engine, err := h.registry.GetOrCreate(c.Request.Context(), patientID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already answered the request
		h.logger.Error("Failed to upgrade connection", zap.String("patientID", patientID), zap.Error(err))
		return
	}

	client := NewClient(patientID, conn, h.buffer)
	h.manager.RegisterClient(client)
	logger := h.logger.With(zap.String("patientID", patientID), zap.Stringer("clientID", client.ID))
	logger.Info("WebSocket connection established")

	events, cancel := engine.Subscribe(h.buffer)
	snapshot := engine.Snapshot()
	h.forward(client, streamMessage{Type: streamSnapshot, Snapshot: &snapshot}, logger)

	go client.writePump(logger)
	go client.readPump(h.manager, cancel, logger)
	go h.pumpEvents(client, events, logger)
}

// pumpEvents relays engine events until the subscription ends.
func (h *WebSocketHandler) pumpEvents(client *Client, events <-chan models.SessionEvent, logger *zap.Logger) {
	for evt := range events {
		e := evt
		h.forward(client, streamMessage{Type: streamEvent, Event: &e}, logger)
	}
	// the engine was closed; end the connection
	h.manager.UnregisterClient(client)
}

func (h *WebSocketHandler) forward(client *Client, msg streamMessage, logger *zap.Logger) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Failed to marshal stream message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	h.manager.Send(client, payload)
}

// readPump discards client messages and keeps the connection alive with pongs.
func (c *Client) readPump(manager *ConnectionManager, unsubscribe func(), logger *zap.Logger) {
	defer func() {
		unsubscribe()
		manager.UnregisterClient(c)
		_ = c.Conn.Close()
		logger.Info("readPump finished")
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
		logger.Debug("Ignoring message from client")
	}
}

// writePump writes queued messages and pings until the send queue is closed.
func (c *Client) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
		logger.Debug("writePump finished")
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Warn("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}
