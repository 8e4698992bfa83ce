package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/lyzr/explorer/cmd/explorer/realtime"
	"github.com/lyzr/explorer/common/logger"
)

// RealtimeHandler upgrades watchers of a record's tags to websockets
type RealtimeHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewRealtimeHandler creates a new realtime handler
func NewRealtimeHandler(hub *realtime.Hub, log *logger.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS is handled by the echo middleware
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// WatchTags streams tag events of one record
// GET /ws/records/:id/tags
func (h *RealtimeHandler) WatchTags(c echo.Context) error {
	recordID := idParam(c)

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the error response
		h.log.Warn("websocket upgrade failed", "record_id", recordID, "error", err)
		return nil
	}

	h.log.Debug("websocket connected", "record_id", recordID, "remote", c.RealIP())
	realtime.NewClient(h.hub, conn, recordID).Serve()
	return nil
}
