package api

import (
	"grocery-sync/internal/auth"
	"grocery-sync/internal/config"
	"grocery-sync/internal/database"
	"grocery-sync/internal/handlers"
	"grocery-sync/internal/websocket"

	"github.com/gin-gonic/gin"
)

func SetupRouter(db *database.DB, hub *websocket.Hub, cfg *config.Config) *gin.Engine {
	router := gin.Default()

	// Custom CORS middleware
	router.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, allowedOrigin := range cfg.CORS.AllowedOrigins {
			if allowedOrigin == "*" || origin == allowedOrigin {
				allowed = true
				break
			}
		}

		if allowed && origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
		}
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Length, Content-Type, Authorization")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Initialize stores and handlers
	documentStore := database.NewDocumentStore(db)
	tokenStore := database.NewTokenStore(db)

	healthHandler := handlers.NewHealthHandler()
	syncHandler := handlers.NewSyncHandler(documentStore)
	shareHandler := handlers.NewShareHandler(documentStore, tokenStore, hub)
	wsHandler := handlers.NewWebSocketHandler(hub)

	api := router.Group("/api")
	api.GET("/health", healthHandler.Health)

	// Shared item access is authenticated by the token in the URL.
	api.GET("/share/:type/:token", shareHandler.GetSharedItem)
	api.PUT("/share/:type/:token", shareHandler.UpdateSharedItem)

	// The document API is open unless a deployment password is configured.
	protected := api.Group("")
	if cfg.Auth.Enabled() {
		jwtManager := auth.NewJWTManager(cfg.JWT)
		authHandler := handlers.NewAuthHandler(jwtManager, cfg.Auth)
		api.POST("/auth/login", authHandler.Login)
		protected.Use(auth.JWTMiddleware(jwtManager))
	}
	{
		protected.GET("/data", syncHandler.GetData)
		protected.POST("/sync", syncHandler.Sync)
		protected.POST("/share/generate", shareHandler.GenerateToken)
	}

	router.GET("/ws", wsHandler.HandleWebSocket)

	return router
}
