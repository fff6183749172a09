package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/noah-isme/cnhs-records-api/internal/app"
	"github.com/noah-isme/cnhs-records-api/internal/repository"
	"github.com/noah-isme/cnhs-records-api/pkg/config"
	"github.com/noah-isme/cnhs-records-api/pkg/logger"
)

func main() {
	var force bool
	var seed int64
	flag.BoolVar(&force, "force", false, "Clear the seeded flag and regenerate the demo dataset")
	flag.Int64Var(&seed, "seed", 0, "Random seed (defaults to SEED_RAND_SEED)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if seed != 0 {
		cfg.Seed.RandSeed = seed
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Store.Backend == config.StoreBackendMemory {
		logr.Fatal("seeding an in-memory store has no lasting effect; set STORE_BACKEND to postgres or redis")
	}

	backends, closeBackends, err := app.OpenBackends(cfg, logr)
	if err != nil {
		logr.Fatal("failed to open backends", zap.Error(err))
	}
	defer closeBackends()

	ctx := context.Background()
	application, err := app.New(ctx, cfg, backends, logr)
	if err != nil {
		logr.Fatal("failed to build application", zap.Error(err))
	}

	if force {
		if err := application.Store.SetValue(ctx, repository.KeySeeded, false); err != nil {
			logr.Fatal("failed to reset seed flag", zap.Error(err))
		}
	}
	seeded, err := application.Services.Seed.SeedIfNeeded(ctx)
	if err != nil {
		logr.Fatal("seeding failed", zap.Error(err))
	}
	if !seeded {
		logr.Info("store already seeded; pass -force to regenerate")
		return
	}
	logr.Info("demo data seeded", zap.Int64("seed", cfg.Seed.RandSeed))
}
