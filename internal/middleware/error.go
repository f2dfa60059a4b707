package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ErrorHandler logs the errors handlers attached with c.Error. The response
// has already been written by handler.RespondWithError.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		l := zerolog.Ctx(c.Request.Context())
		status := c.Writer.Status()
		for _, e := range c.Errors {
			ev := l.Warn()
			if status >= http.StatusInternalServerError {
				ev = l.Error()
			}
			ev.Err(e.Err).
				Str("route", c.FullPath()).
				Str("method", c.Request.Method).
				Int("status", status).
				Msg("Request error")
		}
	}
}
