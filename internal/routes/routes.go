package routes

import (
	"cache-store-api/internal/handlers"
	"cache-store-api/internal/metrics"
	"cache-store-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(cacheHandler *handlers.CacheHandler, m *metrics.Metrics) *gin.Engine {
	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery(), middleware.RequestID())

	// CORS middleware (for browser clients)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, HEAD, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Cache Store API is running",
		})
	})

	if m != nil {
		ginRouter.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		api.POST("/login", handlers.Login)
	}

	// Protected routes (authentication required)
	protectedRoutes := api.Group("")
	protectedRoutes.Use(middleware.JWTAuthMiddleware())
	{
		protectedRoutes.GET("/cache/:key", cacheHandler.Get)
		protectedRoutes.HEAD("/cache/:key", cacheHandler.Has)
		protectedRoutes.PUT("/cache/:key", cacheHandler.Set)
		protectedRoutes.DELETE("/cache/:key", cacheHandler.Delete)
		protectedRoutes.DELETE("/cache", cacheHandler.Clear)

		protectedRoutes.POST("/cache/batch/get", cacheHandler.GetMultiple)
		protectedRoutes.POST("/cache/batch/set", cacheHandler.SetMultiple)
		protectedRoutes.POST("/cache/batch/delete", cacheHandler.DeleteMultiple)

		protectedRoutes.POST("/cache/deferred", cacheHandler.SaveDeferred)
		protectedRoutes.POST("/cache/commit", cacheHandler.Commit)

		protectedRoutes.GET("/ws", cacheHandler.Watch)
	}

	return ginRouter
}
