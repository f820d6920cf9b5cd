package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"bookreviews/internal/auth"
	"bookreviews/internal/reviews"
	"bookreviews/internal/seed"
	"bookreviews/pkg/database"
	"bookreviews/pkg/logger"
	"bookreviews/pkg/utils"
)

func main() {
	cfg, err := utils.Load()
	if err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("bookreviews-seed", cfg.LogLevel)

	db := database.MustOpen(cfg.Database())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Error("db migrate failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := seed.New(reviews.NewRepo(db), auth.NewRepo(db), log).Run(ctx)
	if err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info(res.Message, slog.Int("inserted", res.Inserted), slog.String("db", cfg.Database().Path))
}
