package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/eacouncil/membership/pkg/errors"
	"github.com/eacouncil/membership/pkg/logger"
	"github.com/eacouncil/membership/pkg/response"
)

// Recovery turns panics into a generic 500 envelope. The panic value stays
// in the log, never in the response body.
func Recovery() gin.HandlerFunc {
	log := logger.WithModule("http")
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", r),
				)
				response.Error(c, apperrors.ErrInternalServer)
				c.Abort()
			}
		}()
		c.Next()
	}
}

// NotFoundHandler answers unknown routes with the standard error envelope.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, apperrors.ErrNotFound.WithDetails(
		fmt.Sprintf("no route for %s %s", c.Request.Method, c.Request.URL.Path)))
}
