package handler

import (
	"fmt"
	"net/http"

	"quest-maker/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func libraryIDParam(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid quest id %q", models.ErrBadRequest, c.Param("id"))
	}
	return id, nil
}

func (h *QuestHandler) listLibrary(c *gin.Context) {
	var q libraryQuery
	if !h.bindQuery(c, &q) {
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultLibraryLimit
	}
	list, err := h.service.ListLibrary(c.Request.Context(), q.Limit, q.Offset)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, libraryListResponse{Data: list, Limit: q.Limit, Offset: q.Offset})
}

func (h *QuestHandler) saveToLibrary(c *gin.Context) {
	saved, err := h.service.SaveToLibrary(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *QuestHandler) openFromLibrary(c *gin.Context) {
	id, err := libraryIDParam(c)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := h.service.OpenFromLibrary(ctx, id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	overview, err := h.ws.Overview(ctx)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *QuestHandler) deleteFromLibrary(c *gin.Context) {
	id, err := libraryIDParam(c)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if err := h.service.DeleteFromLibrary(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
