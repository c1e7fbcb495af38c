package httpapi

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/mentorbook/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// statusOf сопоставляет виду бизнес-ошибки HTTP статус
func statusOf(kind service.ErrorKind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindPermissionDenied:
		return http.StatusForbidden
	case service.KindValidation:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var e *service.Error
	if errors.As(err, &e) {
		c.JSON(statusOf(e.Kind), errorResponse{Error: errorBody{
			Kind:    e.Kind.String(),
			Code:    e.Code,
			Message: e.Reason,
		}})
		return
	}

	h.logger.Error("Request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, errorResponse{Error: errorBody{
		Kind:    "Internal",
		Code:    "internal",
		Message: "internal error",
	}})
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: errorBody{
		Kind:    http.StatusText(status),
		Code:    code,
		Message: message,
	}})
}

func badRequest(c *gin.Context, message string) {
	abortWithError(c, http.StatusBadRequest, "bad_request", message)
}
