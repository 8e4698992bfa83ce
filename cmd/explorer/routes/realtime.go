package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/lyzr/explorer/cmd/explorer/container"
	"github.com/lyzr/explorer/cmd/explorer/handlers"
)

// RegisterRealtimeRoutes registers the websocket routes
func RegisterRealtimeRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewRealtimeHandler(c.Hub, c.Components.Logger)

	e.GET("/ws/records/:id/tags", h.WatchTags) // GET /ws/records/{id}/tags
}
