package handler

import (
	"net/http"

	"github.com/aetherlens/backend/internal/config"
	"github.com/aetherlens/backend/internal/model"
	"github.com/aetherlens/backend/internal/ratelimit"
	"github.com/aetherlens/backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Log       *zap.Logger
	Server    config.ServerConfig
	RateLimit config.RateLimitConfig
	Limiter   *ratelimit.Limiter
	Metrics   *HTTPMetrics
	Gatherer  prometheus.Gatherer
	Resolver  *service.IdentityResolver
	Auth      *AuthHandler
	Devices   *DeviceHandler
	Health    *HealthHandler
}

// NewRouter assembles the request pipeline in its fixed order (correlation, CORS,
// admission, metrics) and mounts every route behind it.
func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	// gin answers trailing-slash redirects before any middleware runs; let them
	// fall through to NoRoute inside the pipeline instead.
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	if !d.Server.TrustProxy {
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(
		RequestContext(d.Log),
		CORSMiddleware(d.Server.CORSAllowedOrigins, d.Server.CORSAllowCredentials),
		RateLimit(d.Limiter, d.RateLimit, ClientKey(d.Server.TrustProxy)),
		d.Metrics.Middleware(),
	)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Detail: "Not Found"})
	})

	r.GET("/", d.Health.Root)
	r.GET("/health", d.Health.Health)
	r.GET("/health/ready", d.Health.Ready)
	r.GET("/health/live", d.Health.Live)
	r.GET(metricsPath, MetricsHandler(d.Gatherer))
	r.GET("/openapi.json", OpenAPIDoc)
	r.GET("/docs", DocsPage)
	r.GET("/redoc", DocsPage)

	authed := RequireAuth(d.Resolver)
	admin := RequireRole(model.RoleAdmin)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		auth.POST("/login", d.Auth.Login)
		auth.POST("/refresh", d.Auth.Refresh)
		auth.GET("/me", authed, d.Auth.Me)

		devices := api.Group("/devices", authed)
		devices.GET("", d.Devices.ListDevices)
		devices.GET("/:device_id", d.Devices.GetDevice)
		devices.POST("", admin, d.Devices.CreateDevice)
		devices.PUT("/:device_id", admin, d.Devices.UpdateDevice)
		devices.DELETE("/:device_id", admin, d.Devices.DeleteDevice)
	}

	return r
}
