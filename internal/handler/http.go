package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"quest-maker/internal/middleware"
	"quest-maker/internal/models"
	"quest-maker/internal/service"
	"quest-maker/internal/workspace"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const defaultLibraryLimit = 20

// QuestHandler обслуживает HTTP API редактора.
type QuestHandler struct {
	service        *service.QuestService
	ws             *workspace.Workspace
	notifications  http.Handler
	maxImportBytes int64
	logger         *zap.Logger
}

// NewQuestHandler создает обработчик. notifications может быть nil: тогда /ws не регистрируется.
func NewQuestHandler(svc *service.QuestService, notifications http.Handler, maxImportBytes int64, logger *zap.Logger) *QuestHandler {
	return &QuestHandler{
		service:        svc,
		ws:             svc.Workspace(),
		notifications:  notifications,
		maxImportBytes: maxImportBytes,
		logger:         logger.Named("QuestHandler"),
	}
}

// requestLogger - логгер обработчика с идентификатором текущего запроса.
func (h *QuestHandler) requestLogger(c *gin.Context) *zap.Logger {
	return middleware.RequestLogger(c, h.logger)
}

// RegisterRoutes регистрирует маршруты API.
func (h *QuestHandler) RegisterRoutes(router *gin.Engine) {
	if h.notifications != nil {
		router.GET("/ws", gin.WrapH(h.notifications))
	}

	api := router.Group("/api")
	{
		api.GET("/quest", h.getQuest)
		api.PATCH("/quest", h.patchQuest)
		api.PUT("/focus", h.setFocus)
		api.GET("/achievements", h.listAchievements)

		scenarios := api.Group("/scenarios")
		scenarios.GET("", h.listScenarios)
		scenarios.POST("", h.createScenario)
		scenarios.GET("/:id", h.getScenario)
		scenarios.PATCH("/:id", h.patchScenario)
		scenarios.DELETE("/:id", h.deleteScenario)
		scenarios.POST("/:id/rename", h.renameScenario)
		scenarios.POST("/:id/choices", h.addChoice)
		scenarios.PATCH("/:id/choices/:index", h.patchChoice)
		scenarios.DELETE("/:id/choices/:index", h.deleteChoice)

		playGroup := api.Group("/play")
		playGroup.POST("", h.enterPlay)
		playGroup.DELETE("", h.exitPlay)
		playGroup.GET("", h.getPlayState)
		playGroup.POST("/choose", h.choose)
		playGroup.POST("/back", h.back)
		playGroup.POST("/forward", h.forward)
		playGroup.POST("/jump", h.jump)

		api.GET("/export/:format", h.export)
		api.POST("/import/:format", h.importQuest)

		library := api.Group("/library")
		library.GET("", h.listLibrary)
		library.POST("", h.saveToLibrary)
		library.POST("/:id/open", h.openFromLibrary)
		library.DELETE("/:id", h.deleteFromLibrary)
	}
}

// bindJSON разбирает тело запроса. Ошибки валидации передаются как есть, остальные - как ErrBadRequest.
func (h *QuestHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.handleServiceError(c, bindError(err))
		return false
	}
	return true
}

func (h *QuestHandler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		h.handleServiceError(c, bindError(err))
		return false
	}
	return true
}

func bindError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrBadRequest, err)
}

func choiceIndexParam(c *gin.Context) (int, error) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return 0, fmt.Errorf("%w: choice index must be an integer", models.ErrBadRequest)
	}
	return index, nil
}
