// Package main runs the AvatarFlowX editor API server
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/avatarflowx/avatarflowx/internal/infrastructure/config"
	"github.com/avatarflowx/avatarflowx/internal/infrastructure/di"
	"github.com/avatarflowx/avatarflowx/internal/infrastructure/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.App.LogLevel, cfg.App.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	defer zap.ReplaceGlobals(zl)()

	container, err := di.InitializeContainer(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("Failed to initialize container", zap.Error(err))
	}
	defer container.Close()

	srv := &http.Server{
		Addr:              cfg.App.ServerAddress,
		Handler:           container.Router().Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		zl.Info("Starting server",
			zap.String("address", cfg.App.ServerAddress),
			zap.String("environment", cfg.App.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	zl.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("Server shutdown error", zap.Error(err))
	}
	zl.Info("Server stopped", zap.Int("open_sessions", container.Editor.Count()))
}
