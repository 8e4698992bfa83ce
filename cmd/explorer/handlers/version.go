package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/explorer/common/logger"
	"github.com/lyzr/explorer/common/models"
	"github.com/lyzr/explorer/common/repository"
)

// VersionHandler lists import batches
type VersionHandler struct {
	repo *repository.DataVersionRepository
	log  *logger.Logger
}

// NewVersionHandler creates a new version handler
func NewVersionHandler(repo *repository.DataVersionRepository, log *logger.Logger) *VersionHandler {
	return &VersionHandler{
		repo: repo,
		log:  log,
	}
}

// ListVersions lists every data version and the active one
// GET /api/v1/versions
func (h *VersionHandler) ListVersions(c echo.Context) error {
	ctx := c.Request().Context()

	versions, err := h.repo.List(ctx)
	if err != nil {
		h.log.Error("failed to list data versions", "error", err)
		return respondError(c, err)
	}

	active, err := h.repo.Active(ctx)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		h.log.Error("failed to get active data version", "error", err)
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"versions": versions,
		"active":   active,
	})
}
