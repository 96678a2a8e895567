package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Recovery turns a panicking handler into a 500 that carries the request id.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			err, ok := recovered.(error)
			if !ok {
				err = fmt.Errorf("%v", recovered)
			}

			requestID := c.GetString(ContextRequestID)
			log.Error().
				Err(err).
				Bytes("stack", debug.Stack()).
				Str("request_id", requestID).
				Str("tenant", c.GetString(ContextTenant)).
				Str("route", c.FullPath()).
				Msg("handler panicked")

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
				Code:    http.StatusInternalServerError,
				Message: "internal error",
				TraceID: requestID,
			})
		}()
		c.Next()
	}
}
