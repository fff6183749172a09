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

	_ "github.com/noah-isme/cnhs-records-api/api/swagger"
	"github.com/noah-isme/cnhs-records-api/internal/app"
	"github.com/noah-isme/cnhs-records-api/pkg/config"
	"github.com/noah-isme/cnhs-records-api/pkg/logger"
)

// @title CNHS Records API
// @version 1.0.0
// @description Student records, enrollment and grading for Cahil National High School.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	backends, closeBackends, err := app.OpenBackends(cfg, logr)
	if err != nil {
		logr.Fatal("failed to open backends", zap.Error(err))
	}
	defer closeBackends()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, cfg, backends, logr)
	if err != nil {
		logr.Fatal("failed to build application", zap.Error(err))
	}
	if err := application.Start(ctx); err != nil {
		logr.Fatal("failed to start application", zap.Error(err))
	}

	srv := application.Server()
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("store", cfg.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logr.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http server shutdown failed", zap.Error(err))
	}
	cancel()
	application.Stop()
	logr.Info("shutdown complete")
}
