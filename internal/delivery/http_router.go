package delivery

import (
	"time"

	"adsinsight/internal/delivery/middleware"
	"adsinsight/pkg/logger"
	"adsinsight/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
	// Gatherer backs /metrics; nil serves the default registry.
	Gatherer prometheus.Gatherer
}

type HTTPRouter struct {
	handlers *HTTPHandlers
	logger   *logger.Logger
	metrics  *metrics.Metrics
	cfg      RouterConfig
}

func NewHTTPRouter(handlers *HTTPHandlers, logger *logger.Logger, metrics *metrics.Metrics, cfg RouterConfig) *HTTPRouter {
	return &HTTPRouter{
		handlers: handlers,
		logger:   logger,
		metrics:  metrics,
		cfg:      cfg,
	}
}

func (r *HTTPRouter) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.Recovery(r.logger))
	router.Use(middleware.Metrics(r.metrics))
	router.Use(middleware.Timeout(r.cfg.RequestTimeout))

	config := cors.DefaultConfig()
	if len(r.cfg.AllowedOrigins) == 0 || (len(r.cfg.AllowedOrigins) == 1 && r.cfg.AllowedOrigins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = r.cfg.AllowedOrigins
	}
	config.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Content-Type", middleware.RequestIDHeader}
	config.ExposeHeaders = []string{middleware.RequestIDHeader}

	router.Use(cors.New(config))

	router.GET("/health", r.handlers.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/", r.handlers.GetAPIInfo)
		v1.GET("", r.handlers.GetAPIInfo)

		v1.POST("/chat", r.handlers.Chat)
		v1.POST("/analyze", r.handlers.Analyze)

		history := v1.Group("/history")
		{
			history.GET("/:session_id", r.handlers.GetHistory)
			history.DELETE("/:session_id", r.handlers.DeleteHistory)
		}

		cache := v1.Group("/cache")
		{
			cache.GET("/status", r.handlers.CacheStatus)
			cache.POST("/clear", r.handlers.ClearCache)
		}
	}

	router.GET("/metrics", middleware.PrometheusHandler(r.cfg.Gatherer))

	return router
}
