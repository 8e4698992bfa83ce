package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/explorer/cmd/explorer/service"
	"github.com/lyzr/explorer/common/logger"
	"github.com/lyzr/explorer/common/models"
	"github.com/lyzr/explorer/common/store"
)

// RecordHandler serves the record snapshot and explore queries
type RecordHandler struct {
	records *service.RecordService
	log     *logger.Logger
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(records *service.RecordService, log *logger.Logger) *RecordHandler {
	return &RecordHandler{
		records: records,
		log:     log,
	}
}

// ListRecords returns a raw range of active records, straight from the database
// GET /api/v1/records?from=0&to=999
func (h *RecordHandler) ListRecords(c echo.Context) error {
	from, err := intParam(c, "from", 0)
	if err != nil || from < 0 {
		return badRequest(c, "from must be a non-negative integer")
	}
	to, err := intParam(c, "to", from+store.DefaultBatchSize-1)
	if err != nil || to < from {
		return badRequest(c, "to must be an integer >= from")
	}
	if to-from >= store.MaxBatchSize {
		return badRequest(c, fmt.Sprintf("at most %d records per request", store.MaxBatchSize))
	}

	records, err := h.records.Records(c.Request().Context(), from, to)
	if err != nil {
		h.log.Error("failed to fetch records", "from", from, "to", to, "error", err)
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

// GetRecord returns one record from the snapshot
// GET /api/v1/records/:id
func (h *RecordHandler) GetRecord(c echo.Context) error {
	id := idParam(c)

	record, ok := h.records.Record(id)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "record not found",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"record": record,
	})
}

// Explore runs keyword, facet and expression filtering over the snapshot
// GET /api/v1/explore?q=glucose&q=fasting&org=A&vocab=LOINC&page=2&page_size=50&expr=...
func (h *RecordHandler) Explore(c echo.Context) error {
	params := c.QueryParams()

	page, err := intParam(c, "page", 1)
	if err != nil {
		return badRequest(c, "page must be an integer")
	}
	pageSize, err := intParam(c, "page_size", 0)
	if err != nil || pageSize < 0 {
		return badRequest(c, "page_size must be a non-negative integer")
	}

	filters := models.FilterSelection{}
	for _, f := range models.Facets {
		if values := params[string(f)]; len(values) > 0 {
			filters[f] = values
		}
	}

	result, err := h.records.Explore(c.Request().Context(), service.ExploreQuery{
		Keywords:   params["q"],
		Filters:    filters,
		Page:       page,
		PageSize:   pageSize,
		Expression: c.QueryParam("expr"),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// Facets returns the distinct values of every facet in the snapshot
// GET /api/v1/facets
func (h *RecordHandler) Facets(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"facets": h.records.Facets(),
	})
}

// Reload reloads the snapshot from the database
// POST /api/v1/records/reload
func (h *RecordHandler) Reload(c echo.Context) error {
	count, err := h.records.Reload(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "reloaded",
		"count":  count,
	})
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
