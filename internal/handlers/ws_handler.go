package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/harbor-im/harbor/config"
	"github.com/harbor-im/harbor/internal/gateway"
	"github.com/harbor-im/harbor/internal/service"
)

// WSHandler owns the persistent connection endpoint. Identity comes from
// the auth middleware; for WebSocket clients the token is passed as a
// query parameter since browsers cannot set headers on the handshake.
type WSHandler struct {
	upgrader websocket.Upgrader
	presence *service.PresenceService
	router   *service.RouterService
	cfg      *config.WebsocketConfig
	logger   *zap.Logger
}

func NewWSHandler(
	presence *service.PresenceService,
	router *service.RouterService,
	cfg *config.WebsocketConfig,
	logger *zap.Logger,
) *WSHandler {
	return &WSHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		presence: presence,
		router:   router,
		cfg:      cfg,
		logger:   logger,
	}
}

// Serve upgrades the request and runs the connection's read loop on the
// current goroutine: one worker per active connection, pushes to other
// connections happen from whichever worker triggered them.
func (h *WSHandler) Serve(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	conn := gateway.NewConnection(userID, ws)
	// Not the request context: it dies with the hijacked HTTP request, and
	// the offline store write must still run during teardown.
	ctx := context.Background()

	h.presence.Connect(ctx, userID, conn)
	defer h.presence.Disconnect(ctx, userID, conn)

	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(ws, userID, done)

	h.readLoop(ws, conn, userID)
}

func (h *WSHandler) readLoop(ws *websocket.Conn, conn *gateway.Connection, userID string) {
	timeout := time.Duration(h.cfg.HeartbeatInterval*2) * time.Second

	ws.SetReadLimit(h.cfg.MaxMessageSize)
	ws.SetReadDeadline(time.Now().Add(timeout))
	ws.SetPongHandler(func(string) error {
		conn.Touch()
		ws.SetReadDeadline(time.Now().Add(timeout))
		h.presence.Refresh(context.Background(), userID)
		return nil
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", zap.String("user_id", userID), zap.Error(err))
			}
			return
		}
		h.router.HandleFrame(context.Background(), userID, data)
	}
}

// pingLoop keeps the connection alive. WriteControl is safe to call
// concurrently with the registry's serialized data writes.
func (h *WSHandler) pingLoop(ws *websocket.Conn, userID string, done <-chan struct{}) {
	interval := time.Duration(h.cfg.HeartbeatInterval) * time.Second
	writeWait := time.Duration(h.cfg.WriteTimeoutSecs) * time.Second

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(writeWait)
			if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				h.logger.Debug("ping failed", zap.String("user_id", userID), zap.Error(err))
				return
			}
		}
	}
}
