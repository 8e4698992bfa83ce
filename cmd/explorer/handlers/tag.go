package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/explorer/cmd/explorer/middleware"
	"github.com/lyzr/explorer/cmd/explorer/service"
	"github.com/lyzr/explorer/common/logger"
)

// TagHandler handles tag-related requests
type TagHandler struct {
	tags *service.TagService
	log  *logger.Logger
}

// NewTagHandler creates a new tag handler
func NewTagHandler(tags *service.TagService, log *logger.Logger) *TagHandler {
	return &TagHandler{
		tags: tags,
		log:  log,
	}
}

// AddTagRequest is the body of POST /api/v1/records/:id/tags
type AddTagRequest struct {
	TagText string `json:"tag_text"`
}

// ListTags lists every tag
// GET /api/v1/tags
func (h *TagHandler) ListTags(c echo.Context) error {
	tags, err := h.tags.FetchAllTags(c.Request().Context())
	if err != nil {
		h.log.Error("failed to list tags", "error", err)
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"tags":  tags,
		"count": len(tags),
	})
}

// ListRecordTags lists one record's tags, newest first
// GET /api/v1/records/:id/tags
func (h *TagHandler) ListRecordTags(c echo.Context) error {
	recordID := idParam(c)

	tags, err := h.tags.GetTags(c.Request().Context(), recordID)
	if err != nil {
		h.log.Error("failed to list record tags", "record_id", recordID, "error", err)
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"record_id": recordID,
		"tags":      tags,
	})
}

// AddTag attaches a tag to a record
// POST /api/v1/records/:id/tags
func (h *TagHandler) AddTag(c echo.Context) error {
	recordID := idParam(c)

	var req AddTagRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	tag, err := h.tags.AddTag(c.Request().Context(), recordID, req.TagText)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.log.Error("failed to add tag", "record_id", recordID, "error", err)
		}
		return respondError(c, err)
	}

	h.log.Debug("tag created via api",
		"record_id", recordID,
		"tag_id", tag.ID,
		"user", middleware.GetUsername(c),
	)

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"tag": tag,
	})
}

// DeleteTag removes a tag
// DELETE /api/v1/tags/:id
func (h *TagHandler) DeleteTag(c echo.Context) error {
	tagID := idParam(c)

	tag, err := h.tags.DeleteTag(c.Request().Context(), tagID)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.log.Error("failed to delete tag", "tag_id", tagID, "error", err)
		}
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "deleted",
		"tag":    tag,
	})
}
