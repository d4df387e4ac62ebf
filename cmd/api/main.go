package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nductrung-205/furniture-be/internal/api"
	"github.com/nductrung-205/furniture-be/internal/config"
	"github.com/nductrung-205/furniture-be/pkg/logger"
)

func main() {
	cfg, err := config.Load()

	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Starting furniture storefront API", "env", cfg.Env, "port", cfg.Port)

	server, err := api.NewServer(cfg, log)

	if err != nil {
		log.Error("Failed to initialize server", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Error("Server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited gracefully")
}
