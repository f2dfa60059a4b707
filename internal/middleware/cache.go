package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CacheConfig represents cache control configuration
type CacheConfig struct {
	MaxAge    int
	Private   bool
	NoStore   bool
	Immutable bool
	Vary      []string
}

// NoStoreCacheConfig is used for API responses, which are per caller.
func NoStoreCacheConfig() CacheConfig {
	return CacheConfig{NoStore: true, Private: true}
}

// MediaCacheConfig is used for uploaded images. Keys embed the upload time,
// so a stored object never changes.
func MediaCacheConfig() CacheConfig {
	return CacheConfig{MaxAge: 31536000, Immutable: true}
}

// Cache adds cache control headers to responses
func Cache(config CacheConfig) gin.HandlerFunc {
	directives := make([]string, 0, 4)
	if config.NoStore {
		directives = append(directives, "no-store")
	}
	if config.Private {
		directives = append(directives, "private")
	} else {
		directives = append(directives, "public")
	}
	if config.MaxAge > 0 {
		directives = append(directives, "max-age="+strconv.Itoa(config.MaxAge))
	}
	if config.Immutable {
		directives = append(directives, "immutable")
	}
	value := strings.Join(directives, ", ")
	vary := strings.Join(config.Vary, ", ")

	return func(c *gin.Context) {
		if c.Request.Method != "GET" && c.Request.Method != "HEAD" {
			c.Header("Cache-Control", "no-store")
			c.Next()
			return
		}

		c.Header("Cache-Control", value)
		if vary != "" {
			c.Header("Vary", vary)
		}
		c.Next()
	}
}
