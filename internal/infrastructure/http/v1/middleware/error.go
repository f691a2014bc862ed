package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"buildplus/internal/core/apperror"
	"buildplus/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// The body carries "error" for clients that only read a message, next to the
// structured code, message and details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		if appErr, ok := apperror.AsAppError(err); ok {
			if appErr.Err != nil {
				logger.Error(c.Request.Context(), "request error",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
			} else if appErr.HTTPStatus >= http.StatusInternalServerError {
				logger.Error(c.Request.Context(), "request error", "code", appErr.Code)
			}

			c.JSON(appErr.HTTPStatus, errorBody(appErr.Code, appErr.Message, appErr.Details))
			return
		}

		// Unknown error - log and return generic message
		logger.Error(c.Request.Context(), "unhandled error", "error", err)

		c.JSON(http.StatusInternalServerError, errorBody(apperror.CodeInternal, "Internal server error",
			map[string]any{"request_id": c.GetString("request_id")}))
	}
}

func errorBody(code, message string, details map[string]any) gin.H {
	body := gin.H{
		"error":   message,
		"code":    code,
		"message": message,
	}
	if len(details) > 0 {
		body["details"] = details
	}
	return body
}
