package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kbchat/internal/api"
	"kbchat/internal/app"
	"kbchat/pkg/config"
	"kbchat/pkg/logger"

	"go.uber.org/zap"
)

// @title kbchat API
// @version 1.0
// @description Knowledge-base chat assistant answering only from uploaded Q&A spreadsheets
// @BasePath /

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting kbchat service")

	ctx := context.Background()
	deps, err := app.NewDependencies(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize dependencies", zap.Error(err))
	}
	defer deps.Close()

	server := api.SetupRouter(deps.Handlers(), cfg, appLogger)

	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := server.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := server.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
