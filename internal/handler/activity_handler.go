package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/pkg/response"
)

const (
	defaultActivityLimit = 10
	streamWriteWait      = 10 * time.Second
	streamPongWait       = 60 * time.Second
	streamPingPeriod     = streamPongWait * 9 / 10
)

type activityFeed interface {
	Recent(ctx context.Context, limit int) []models.ActivityLog
	Subscribe() (<-chan models.ActivityLog, func())
}

// buildUpgrader allows every origin when allowedOrigins is empty.
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// ActivityHandler serves the activity log and its live feed.
type ActivityHandler struct {
	feed     activityFeed
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewActivityHandler constructs ActivityHandler.
func NewActivityHandler(feed activityFeed, allowedOrigins []string, logger *zap.Logger) *ActivityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityHandler{
		feed:     feed,
		upgrader: buildUpgrader(allowedOrigins),
		logger:   logger.With(zap.String("component", "activity_stream")),
	}
}

// List godoc
// @Summary Recent activity
// @Tags Activity
// @Produce json
// @Param limit query int false "Maximum entries, 0 for the whole log"
// @Success 200 {object} response.Envelope
// @Router /activity [get]
func (h *ActivityHandler) List(c *gin.Context) {
	limit := defaultActivityLimit
	if _, present := c.GetQuery("limit"); present {
		n, ok := intQuery(c, "limit")
		if !ok {
			return
		}
		limit = n
	}
	response.OK(c, h.feed.Recent(c.Request.Context(), limit))
}

// Stream godoc
// @Summary Live activity feed
// @Description Upgrades to a websocket that pushes every new activity entry as JSON.
// @Tags Activity
// @Param access_token query string false "Bearer token for browsers that cannot set headers"
// @Success 101
// @Router /activity/stream [get]
func (h *ActivityHandler) Stream(c *gin.Context) {
	// Subscribe before the handshake completes so no entry recorded after
	// the client connects is missed.
	entries, cancel := h.feed.Subscribe()
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go h.readPump(conn, closed)

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(entry); err != nil {
				h.logger.Debug("activity stream write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

// readPump drains client frames so control messages are processed, and
// signals when the peer goes away.
func (h *ActivityHandler) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("activity stream closed unexpectedly", zap.Error(err))
			}
			return
		}
	}
}
