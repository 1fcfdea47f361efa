package handler

import (
	"errors"
	"net/http"
	"strings"

	"quest-maker/internal/models"
	"quest-maker/internal/play"
	"quest-maker/internal/workspace"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

func (h *QuestHandler) handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var errResp models.ErrorResponse

	var validationErrs validator.ValidationErrors
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &validationErrs):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeValidation, Message: describeValidation(validationErrs)}
	case errors.As(err, &tooLarge):
		statusCode = http.StatusRequestEntityTooLarge
		errResp = models.ErrorResponse{Code: models.ErrCodeTooLarge, Message: err.Error()}
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Code: models.ErrCodeNotFound, Message: err.Error()}
	case errors.Is(err, models.ErrProtectedNode):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.ErrCodeProtectedNode, Message: err.Error()}
	case errors.Is(err, models.ErrDuplicateID):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.ErrCodeDuplicateID, Message: err.Error()}
	case errors.Is(err, models.ErrEmptyID):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeEmptyID, Message: err.Error()}
	case errors.Is(err, models.ErrIndex):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeIndex, Message: err.Error()}
	case errors.Is(err, models.ErrInvalidField):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeInvalidField, Message: err.Error()}
	case errors.Is(err, models.ErrDanglingReference):
		statusCode = http.StatusUnprocessableEntity
		errResp = models.ErrorResponse{Code: models.ErrCodeDanglingReference, Message: err.Error()}
	case errors.Is(err, models.ErrNotPlaying):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.ErrCodeNotPlaying, Message: err.Error()}
	case errors.Is(err, play.ErrInvalidSession):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeInvalidSession, Message: err.Error()}
	case errors.Is(err, models.ErrParse):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeParse, Message: err.Error()}
	case errors.Is(err, models.ErrSchema):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeSchema, Message: err.Error()}
	case errors.Is(err, models.ErrFormat):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeFormat, Message: err.Error()}
	case errors.Is(err, models.ErrQuestNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Code: models.ErrCodeQuestNotFound, Message: err.Error()}
	case errors.Is(err, models.ErrStorageOffline):
		statusCode = http.StatusServiceUnavailable
		errResp = models.ErrorResponse{Code: models.ErrCodeStorageOffline, Message: "Quest library is not configured"}
	case errors.Is(err, workspace.ErrClosed):
		statusCode = http.StatusServiceUnavailable
		errResp = models.ErrorResponse{Code: models.ErrCodeUnavailable, Message: "Server is shutting down"}
	case errors.Is(err, models.ErrBadRequest):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: err.Error()}
	default:
		h.requestLogger(c).Error("Unhandled internal error", zap.String("path", c.FullPath()), zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = models.ErrorResponse{Code: models.ErrCodeInternal, Message: "An unexpected internal error occurred"}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}

func describeValidation(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		parts = append(parts, fe.Field()+" failed on "+fe.Tag())
	}
	return "validation error: " + strings.Join(parts, "; ")
}
