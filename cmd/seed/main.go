package main

import (
	"context"
	"log/slog"
	"os"

	"distribuidora-backend/internal/config"
	"distribuidora-backend/internal/database"
	"distribuidora-backend/internal/logger"
	"distribuidora-backend/internal/seed"
)

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

	err = seed.Run(context.Background(), db, seed.Admin{
		Name:     cfg.SeedAdminName,
		Username: cfg.SeedAdminUsername,
		Email:    cfg.SeedAdminEmail,
		Password: cfg.SeedAdminPassword,
	})
	if err != nil {
		l.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	l.Info("seed complete")
}
