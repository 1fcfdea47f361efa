package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"quest-maker/internal/models"
	"quest-maker/internal/workspace"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func formatParam(c *gin.Context) (workspace.Format, error) {
	switch f := workspace.Format(c.Param("format")); f {
	case workspace.FormatData, workspace.FormatBundle:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", models.ErrBadRequest, f)
	}
}

func (h *QuestHandler) export(c *gin.Context) {
	format, err := formatParam(c)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	art, err := h.service.Export(c.Request.Context(), format)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Filename}))
	c.Data(http.StatusOK, art.ContentType, art.Body)
}

// importQuest принимает файл из поля multipart "file" или тело запроса целиком.
func (h *QuestHandler) importQuest(c *gin.Context) {
	format, err := formatParam(c)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if h.maxImportBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImportBytes)
	}

	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			h.handleServiceError(c, multipartError(err))
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			h.handleServiceError(c, fmt.Errorf("failed to open uploaded file: %w", err))
			return
		}
		defer file.Close()
		body = file
		h.requestLogger(c).Debug("Importing uploaded file", zap.String("filename", fileHeader.Filename), zap.Int64("size", fileHeader.Size))
	}

	meta, err := h.service.Import(c.Request.Context(), format, body)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	overview, err := h.ws.Overview(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.requestLogger(c).Info("Quest imported", zap.String("format", string(format)), zap.String("title", meta.Title))
	c.JSON(http.StatusOK, overview)
}

func multipartError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("%w: multipart field \"file\" is required: %v", models.ErrBadRequest, err)
}
