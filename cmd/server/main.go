package main

import (
	"grocery-sync/internal/api"
	"grocery-sync/internal/config"
	"grocery-sync/internal/database"
	"grocery-sync/internal/logger"
	"grocery-sync/internal/websocket"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Environment)
	defer logger.Log.Sync()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Sugar.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Sugar.Fatalf("Failed to run migrations: %v", err)
	}

	hub := websocket.NewHub()

	router := api.SetupRouter(db, hub, cfg)

	logger.Sugar.Infof("Grocery sync API listening on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Sugar.Fatalf("Server stopped: %v", err)
	}
}
