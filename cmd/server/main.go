package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"distribuidora-backend/internal/config"
	"distribuidora-backend/internal/database"
	"distribuidora-backend/internal/logger"
	"distribuidora-backend/internal/server"
	"distribuidora-backend/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	l := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg)
	if err != nil {
		l.Error("database connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		l.Error("migration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, err := storage.New(context.Background(), cfg, l)
	if err != nil {
		l.Error("storage init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	app := server.New(server.Deps{Config: cfg, DB: db, Store: store, Logger: l})

	serverErrors := make(chan error, 1)
	go func() {
		l.Info("starting HTTP server",
			slog.String("port", cfg.HTTPPort),
			slog.String("storage", cfg.StorageDriver))
		serverErrors <- app.Listen(":" + cfg.HTTPPort)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			l.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case sig := <-shutdown:
		l.Info("shutdown signal received", slog.String("signal", sig.String()))
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			l.Error("graceful shutdown failed", slog.String("error", err.Error()))
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		l.Info("server shutdown complete")
	}
}
