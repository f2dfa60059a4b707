package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the pharmacy dashboard and the client app to call the API from
// the configured origins. A "*" entry allows any origin. Preflights are
// answered with 200.
func CORS(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", HeaderXRequestID},
		ExposeHeaders:    []string{"Content-Length", HeaderXRequestID},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
		// the client app treats anything but 200 on a preflight as a failure
		OptionsResponseStatusCode: http.StatusOK,
	}

	for _, o := range origins {
		if o == "*" {
			config.AllowAllOrigins = true
			break
		}
	}
	if !config.AllowAllOrigins {
		config.AllowOrigins = origins
	}

	handle := cors.New(config)
	return func(c *gin.Context) {
		handle(c)
		// a preflight to a route with its own OPTIONS handler still gets
		// that handler's body
		if c.IsAborted() && c.Request.Method == http.MethodOptions &&
			c.Writer.Status() == http.StatusOK && c.FullPath() != "" {
			c.Handler()(c)
		}
	}
}
