package handler

import (
	"net/http"

	"quest-maker/internal/workspace"

	"github.com/gin-gonic/gin"
)

func (h *QuestHandler) enterPlay(c *gin.Context) {
	var q playQuery
	if !h.bindQuery(c, &q) {
		return
	}
	state, err := h.service.EnterPlay(c.Request.Context(), q.Resume)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *QuestHandler) exitPlay(c *gin.Context) {
	if err := h.service.ExitPlay(c.Request.Context()); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *QuestHandler) getPlayState(c *gin.Context) {
	h.respondPlay(c, func() (workspace.PlayState, error) {
		return h.service.PlayState(c.Request.Context())
	})
}

func (h *QuestHandler) choose(c *gin.Context) {
	var req chooseRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.respondPlay(c, func() (workspace.PlayState, error) {
		return h.service.Choose(c.Request.Context(), req.Next)
	})
}

func (h *QuestHandler) back(c *gin.Context) {
	h.respondPlay(c, func() (workspace.PlayState, error) {
		return h.service.Back(c.Request.Context())
	})
}

func (h *QuestHandler) forward(c *gin.Context) {
	h.respondPlay(c, func() (workspace.PlayState, error) {
		return h.service.Forward(c.Request.Context())
	})
}

func (h *QuestHandler) jump(c *gin.Context) {
	var req jumpRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.respondPlay(c, func() (workspace.PlayState, error) {
		return h.service.JumpTo(c.Request.Context(), *req.Index)
	})
}

func (h *QuestHandler) respondPlay(c *gin.Context, op func() (workspace.PlayState, error)) {
	state, err := op()
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}
