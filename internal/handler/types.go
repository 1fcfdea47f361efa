package handler

import "quest-maker/internal/models"

type patchQuestRequest struct {
	Title *string `json:"title"`
	Icon  *string `json:"icon"`
}

type focusRequest struct {
	ID string `json:"id" binding:"required"`
}

type patchScenarioRequest struct {
	Text        *string          `json:"text"`
	Location    *string          `json:"location"`
	Ending      *bool            `json:"ending"`
	Achievement *string          `json:"achievement"`
	EndingText  *string          `json:"endingText"`
	Choices     *[]models.Choice `json:"choices"`
}

type renameRequest struct {
	NewID string `json:"newId"`
}

type choiceRequest struct {
	Text *string `json:"text"`
	Next *string `json:"next"`
}

type chooseRequest struct {
	Next string `json:"next" binding:"required"`
}

type jumpRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}

type playQuery struct {
	Resume bool `form:"resume"`
}

type libraryQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

type idResponse struct {
	ID string `json:"id"`
}

type indexResponse struct {
	Index int `json:"index"`
}

type libraryListResponse struct {
	Data   []models.SavedQuestSummary `json:"data"`
	Limit  int                        `json:"limit"`
	Offset int                        `json:"offset"`
}
