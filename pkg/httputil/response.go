package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"bookreviews/pkg/apperrors"
	"bookreviews/pkg/logger"
	"bookreviews/pkg/validator"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteError maps err to a status code and writes {"error": {...}}.
// Internal errors are logged with the request-scoped logger and their detail
// is not sent to the client.
func WriteError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	requestID := logger.RequestIDFromContext(ctx)

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logInternal(c, err)
		}
		c.JSON(appErr.Status, gin.H{"error": ErrorResponse{
			Code:      appErr.Code,
			Message:   appErr.Message,
			RequestID: requestID,
		}})
		return
	}

	status := apperrors.HTTPStatus(err)
	resp := ErrorResponse{Code: "INTERNAL_ERROR", Message: "an internal error occurred", RequestID: requestID}
	switch status {
	case http.StatusNotFound:
		resp.Code, resp.Message = "NOT_FOUND", "resource not found"
	case http.StatusBadRequest:
		resp.Code, resp.Message = "VALIDATION", err.Error()
	case http.StatusUnauthorized:
		resp.Code, resp.Message = "UNAUTHENTICATED", "Not authenticated"
	case http.StatusConflict:
		resp.Code, resp.Message = "CONFLICT", err.Error()
	default:
		logInternal(c, err)
	}
	c.JSON(status, gin.H{"error": resp})
}

// WriteBindError reports a request body that failed to decode or validate.
func WriteBindError(c *gin.Context, err error) {
	resp := ErrorResponse{
		Code:      "VALIDATION",
		Message:   "invalid json",
		RequestID: logger.RequestIDFromContext(c.Request.Context()),
	}
	if fields, ok := validator.Fields(err); ok {
		resp.Message = validator.Message(err)
		resp.Fields = fields
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": resp})
}

func logInternal(c *gin.Context, err error) {
	logger.FromContext(c.Request.Context()).ErrorContext(c.Request.Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
	)
}
