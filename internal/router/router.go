package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/booking-console/internal/handler"
	"github.com/jwalitptl/booking-console/internal/handler/prometheus"
	"github.com/jwalitptl/booking-console/internal/middleware"
)

type Router struct {
	engine    *gin.Engine
	tenant    *middleware.TenantMiddleware
	metrics   *prometheus.Handler
	healthH   handler.Handler
	publicH   []handler.Handler
	tenantH   []handler.Handler
	metricsAt string
	security  middleware.SecurityConfig
}

type RouterConfig struct {
	Mode           string
	RateLimit      rate.Limit
	RateBurst      int
	CORSConfig     middleware.CORSConfig
	Security       middleware.SecurityConfig
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	// MetricsPath serves Prometheus metrics when set.
	MetricsPath string
}

// NewRouter wires the middleware chain. Public handlers need no tenant; tenant handlers
// run behind the tenant middleware.
func NewRouter(
	tenant *middleware.TenantMiddleware,
	metrics *prometheus.Handler,
	healthH handler.Handler,
	publicH []handler.Handler,
	tenantH []handler.Handler,
	config RouterConfig,
) *Router {
	if config.Mode == "" {
		config.Mode = gin.ReleaseMode
	}
	gin.SetMode(config.Mode)

	engine := gin.New()

	r := &Router{
		engine:    engine,
		tenant:    tenant,
		metrics:   metrics,
		healthH:   healthH,
		publicH:   publicH,
		tenantH:   tenantH,
		metricsAt: config.MetricsPath,
		security:  config.Security,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
	)
	if metrics != nil {
		engine.Use(metrics.Middleware())
	}
	engine.Use(
		middleware.CORS(config.CORSConfig),
		middleware.ErrorHandler(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.SizeLimit(middleware.SizeLimitConfig{MaxBodySize: config.MaxBodyBytes}),
	)

	if config.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	if r.metrics != nil && r.metricsAt != "" {
		r.engine.GET(r.metricsAt, r.metrics.Handler())
	}

	api := r.engine.Group("/api/v1")

	// Add version header
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	}, middleware.SecurityHeaders(r.security))

	if r.healthH != nil {
		r.healthH.RegisterRoutes(api)
	}

	for _, h := range r.publicH {
		h.RegisterRoutes(api)
	}

	scoped := api.Group("")
	scoped.Use(r.tenant.Resolve())
	for _, h := range r.tenantH {
		h.RegisterRoutes(scoped)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
