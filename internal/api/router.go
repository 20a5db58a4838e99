package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"resource-availability-backend/config"
	"resource-availability-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(handler *Handler, cfg config.ServerConfig, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(handler.logger))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, cfg.RequestIPHeader)
	caching := mw.Cache(handler.cache, cfg.CacheTTL)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// The upstream pushes events without being rate limited.
	r.POST("/api/events", handler.PostEvent)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/sessions", handler.CreateSession)
		api.GET("/sessions/:id/page", handler.GetPage)
		api.GET("/sessions/:id/updates", handler.StreamUpdates)
		api.DELETE("/sessions/:id", handler.DeleteSession)

		api.GET("/resources", caching, handler.ListResources)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
