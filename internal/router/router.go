package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/adherence-api/internal/handler"
	"github.com/jwalitptl/adherence-api/internal/handler/ad"
	"github.com/jwalitptl/adherence-api/internal/handler/auth"
	"github.com/jwalitptl/adherence-api/internal/handler/health"
	"github.com/jwalitptl/adherence-api/internal/handler/pharmacy"
	"github.com/jwalitptl/adherence-api/internal/middleware"
	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/realtime"
	"github.com/jwalitptl/adherence-api/pkg/metrics"
)

// RoleHandler mounts routes for both audiences: pharmacy staff under
// /api/v1 and clients under /api/v1/me.
type RoleHandler interface {
	RegisterRoutes(pharmacy, me *gin.RouterGroup)
}

type Handlers struct {
	Auth     *auth.Handler
	Health   *health.Handler
	Pharmacy *pharmacy.Handler
	Ads      *ad.Handler
	Realtime *realtime.Handler
	// Resources are the client, medication, dose, issue, vitals and report
	// handlers.
	Resources []RoleHandler
}

type RouterConfig struct {
	RateLimit      rate.Limit
	RateBurst      int
	CORSOrigins    []string
	Timeout        time.Duration
	MaxBodyBytes   int64
	MaxUploadBytes int64
	ReleaseMode    bool
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	handlers Handlers,
	m *metrics.Metrics,
	config RouterConfig,
) *Router {
	if config.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	sizeLimit := middleware.DefaultSizeLimitConfig()
	if config.MaxBodyBytes > 0 {
		sizeLimit.MaxBodySize = config.MaxBodyBytes
	}
	if config.MaxUploadBytes > 0 {
		// multipart overhead on top of the image itself
		sizeLimit.MaxUploadSize = config.MaxUploadBytes + 1<<20
	}

	timeout := middleware.DefaultTimeoutConfig()
	if config.Timeout > 0 {
		timeout.Duration = config.Timeout
	}
	timeout.SkipPaths = []string{"/api/v1/realtime/ws"}

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.ErrorHandler(),
		middleware.Metrics(m),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSOrigins),
		middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		}).RateLimit(),
		middleware.SizeLimit(sizeLimit),
		middleware.Timeout(timeout),
	)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("not found"))
	})

	return &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
	}
}

func (r *Router) Setup() {
	if r.handlers.Health != nil {
		r.handlers.Health.RegisterRoutes(r.engine)
	}
	if r.handlers.Ads != nil {
		r.handlers.Ads.RegisterMediaRoutes(r.engine, middleware.Cache(middleware.MediaCacheConfig()))
	}

	api := r.engine.Group("/api/v1")
	api.Use(middleware.Cache(middleware.NoStoreCacheConfig()))

	authenticate := r.auth.Authenticate()
	r.handlers.Auth.RegisterRoutes(api, authenticate)
	if r.handlers.Realtime != nil {
		r.handlers.Realtime.RegisterRoutes(api, authenticate)
	}

	pharmacyGroup := api.Group("", authenticate, r.auth.RequireRole(model.RolePharmacy))
	me := api.Group("/me", authenticate, r.auth.RequireRole(model.RoleClient))

	if r.handlers.Pharmacy != nil {
		r.handlers.Pharmacy.RegisterRoutes(pharmacyGroup)
	}
	if r.handlers.Ads != nil {
		r.handlers.Ads.RegisterRoutes(pharmacyGroup, me)
	}
	for _, h := range r.handlers.Resources {
		h.RegisterRoutes(pharmacyGroup, me)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
