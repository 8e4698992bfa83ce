package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/lyzr/explorer/cmd/explorer/container"
	"github.com/lyzr/explorer/cmd/explorer/handlers"
)

// RegisterRecordRoutes registers the snapshot, explore and version routes
func RegisterRecordRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewRecordHandler(c.RecordService, c.Components.Logger)

	records := e.Group("/api/v1/records")
	{
		records.GET("", h.ListRecords)    // GET /api/v1/records?from=0&to=999
		records.POST("/reload", h.Reload) // POST /api/v1/records/reload
		records.GET("/:id", h.GetRecord)  // GET /api/v1/records/{id}
	}

	e.GET("/api/v1/explore", h.Explore) // GET /api/v1/explore?q=glucose&org=A
	e.GET("/api/v1/facets", h.Facets)   // GET /api/v1/facets

	if c.VersionRepo != nil {
		v := handlers.NewVersionHandler(c.VersionRepo, c.Components.Logger)
		e.GET("/api/v1/versions", v.ListVersions) // GET /api/v1/versions
	}
}
