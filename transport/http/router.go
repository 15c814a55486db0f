package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/metric"

	"github.com/Kizaaaa/certichain/core"
	"github.com/Kizaaaa/certichain/internal/metrics"
	"github.com/Kizaaaa/certichain/service"
)

// Services are the use cases exposed over HTTP
type Services struct {
	Auth         *service.AuthService
	Issuance     *service.IssuanceService
	Verification *service.VerificationService
	Revocation   *service.RevocationService
}

// RouterConfig configures the router
type RouterConfig struct {
	ChainID          uint64
	MaxDocumentBytes int64

	RateLimitEnabled        bool
	RateLimitRequestsPerSec float64
	RateLimitBurst          int

	// MeterProvider and MetricsHandler are nil when metrics are disabled
	MeterProvider    metric.MeterProvider
	MetricsHandler   http.Handler
	MetricsNamespace string

	Logger logrus.FieldLogger
}

// SetupRouter sets up the Gin router. ctx bounds background middleware work.
func SetupRouter(ctx context.Context, services Services, cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(cfg.Logger))
	if cfg.MeterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(cfg.MeterProvider, cfg.MetricsNamespace))
	}
	if cfg.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	authHandlers := NewAuthHandlers(services.Auth)
	certHandlers := NewCertificateHandlers(
		services.Issuance,
		services.Verification,
		services.Revocation,
		cfg.ChainID,
		cfg.MaxDocumentBytes,
		cfg.Logger,
	)

	// Auth routes
	auth := router.Group("/auth")
	if cfg.RateLimitEnabled {
		auth.Use(RateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, cfg.Logger))
	}
	{
		auth.POST("/nonce", authHandlers.RequestNonce)
		auth.GET("/nonce", authHandlers.PeekNonce)
		auth.POST("/verify", authHandlers.Verify)
		auth.POST("/logout", AuthMiddleware(services.Auth), authHandlers.Logout)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(services.Auth))
	{
		api.GET("/me", authHandlers.Me)
		api.GET("/registry", certHandlers.Registry)

		admin := api.Group("", RequireRole(core.RoleAdmin))
		admin.POST("/certificates", certHandlers.Issue)
		admin.POST("/certificates/:id/revoke", certHandlers.Revoke)
	}

	// Public verification routes
	public := router.Group("/certificates")
	{
		public.GET("/view", certHandlers.View)
		public.GET("/:id/status", certHandlers.Status)
	}

	return router
}
