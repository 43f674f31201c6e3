package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/thiagolins/pixbank-be/internal/config"
	"github.com/thiagolins/pixbank-be/internal/logging"
	"github.com/thiagolins/pixbank-be/internal/server"
	"github.com/thiagolins/pixbank-be/internal/storage/postgres"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("init database", "error", err)
	}
	defer store.Close()

	srv := server.New(cfg, store, logger)

	go func() {
		logger.Info("pixbank backend listening", "address", cfg.HTTPAddress(), "auth_mode", cfg.AuthMode)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("graceful shutdown error", "error", err)
	}
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}
