package handler

import (
	"fmt"
	"net/http"

	"quest-maker/internal/graphstore"
	"quest-maker/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *QuestHandler) getQuest(c *gin.Context) {
	overview, err := h.ws.Overview(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *QuestHandler) patchQuest(c *gin.Context) {
	var req patchQuestRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	if err := h.ws.SetMeta(ctx, req.Title, req.Icon); err != nil {
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

func (h *QuestHandler) setFocus(c *gin.Context) {
	var req focusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.ws.Select(c.Request.Context(), req.ID); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *QuestHandler) listAchievements(c *gin.Context) {
	list, err := h.ws.Achievements(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *QuestHandler) listScenarios(c *gin.Context) {
	list, err := h.ws.Scenarios(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *QuestHandler) createScenario(c *gin.Context) {
	id, err := h.ws.CreateScenario(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, idResponse{ID: id})
}

func (h *QuestHandler) getScenario(c *gin.Context) {
	sc, err := h.ws.Scenario(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}

func (h *QuestHandler) patchScenario(c *gin.Context) {
	var req patchScenarioRequest
	if !h.bindJSON(c, &req) {
		return
	}

	var updates []graphstore.FieldUpdate
	add := func(field graphstore.Field, value any) {
		updates = append(updates, graphstore.FieldUpdate{Field: field, Value: value})
	}
	if req.Text != nil {
		add(graphstore.FieldText, *req.Text)
	}
	if req.Location != nil {
		add(graphstore.FieldLocation, *req.Location)
	}
	if req.Ending != nil {
		add(graphstore.FieldEnding, *req.Ending)
	}
	if req.Achievement != nil {
		add(graphstore.FieldAchievement, *req.Achievement)
	}
	if req.EndingText != nil {
		add(graphstore.FieldEndingText, *req.EndingText)
	}
	if req.Choices != nil {
		add(graphstore.FieldChoices, *req.Choices)
	}
	if len(updates) == 0 {
		h.handleServiceError(c, fmt.Errorf("%w: no fields to update", models.ErrBadRequest))
		return
	}

	sc, err := h.ws.UpdateScenarioFields(c.Request.Context(), c.Param("id"), updates)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}

func (h *QuestHandler) deleteScenario(c *gin.Context) {
	if err := h.ws.DeleteScenario(c.Request.Context(), c.Param("id")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *QuestHandler) renameScenario(c *gin.Context) {
	var req renameRequest
	if !h.bindJSON(c, &req) {
		return
	}
	newID, err := h.ws.RenameScenario(c.Request.Context(), c.Param("id"), req.NewID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, idResponse{ID: newID})
}

func (h *QuestHandler) addChoice(c *gin.Context) {
	var req choiceRequest
	// Пустое тело допустимо: добавляется выбор по умолчанию
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	choice := models.DefaultChoice()
	if req.Text != nil {
		choice.Text = *req.Text
	}
	if req.Next != nil {
		choice.Next = *req.Next
	}

	index, err := h.ws.AddChoice(c.Request.Context(), c.Param("id"), choice)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, indexResponse{Index: index})
}

func (h *QuestHandler) patchChoice(c *gin.Context) {
	index, err := choiceIndexParam(c)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	var req choiceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.Text == nil && req.Next == nil {
		h.handleServiceError(c, fmt.Errorf("%w: no fields to update", models.ErrBadRequest))
		return
	}

	var updates []graphstore.ChoiceUpdate
	if req.Text != nil {
		updates = append(updates, graphstore.ChoiceUpdate{Field: graphstore.ChoiceFieldText, Value: *req.Text})
	}
	if req.Next != nil {
		updates = append(updates, graphstore.ChoiceUpdate{Field: graphstore.ChoiceFieldNext, Value: *req.Next})
	}
	sc, err := h.ws.UpdateChoiceFields(c.Request.Context(), c.Param("id"), index, updates)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}

func (h *QuestHandler) deleteChoice(c *gin.Context) {
	index, err := choiceIndexParam(c)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if err := h.ws.DeleteChoice(c.Request.Context(), c.Param("id"), index); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
