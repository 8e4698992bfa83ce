package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/lyzr/explorer/cmd/explorer/container"
	"github.com/lyzr/explorer/cmd/explorer/handlers"
)

// RegisterTagRoutes registers all tag-related routes
func RegisterTagRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewTagHandler(c.TagService, c.Components.Logger)

	e.GET("/api/v1/records/:id/tags", h.ListRecordTags) // GET /api/v1/records/{id}/tags
	e.POST("/api/v1/records/:id/tags", h.AddTag)        // POST /api/v1/records/{id}/tags

	tags := e.Group("/api/v1/tags")
	{
		tags.GET("", h.ListTags)         // GET /api/v1/tags
		tags.DELETE("/:id", h.DeleteTag) // DELETE /api/v1/tags/{id}
	}
}
