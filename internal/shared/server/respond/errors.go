package respond

import (
	"github.com/gin-gonic/gin"

	"plusfolio-backend/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// FailedResponse pairs the error body with a terminal submission status.
type FailedResponse struct {
	Status string    `json:"status"`
	Error  ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	logError(c, status, code, message)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// Failed sends the standardized error body alongside status "failed", for
// endpoints whose rejections are terminal submission outcomes.
func Failed(c *gin.Context, status int, code, message string) {
	logError(c, status, code, message)

	c.AbortWithStatusJSON(status, FailedResponse{
		Status: "failed",
		Error: ErrorBody{
			Code:    code,
			Message: message,
		},
	})
}

func logError(c *gin.Context, status int, code, message string) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	telemetry.Error("http.error", fields)
}
