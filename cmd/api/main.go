package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanwahyu/trustbrief/internal/bootstrap"
	"github.com/bryanwahyu/trustbrief/internal/config"
	"github.com/bryanwahyu/trustbrief/internal/infra/httpserver"
	"github.com/bryanwahyu/trustbrief/internal/middleware"
	"github.com/bryanwahyu/trustbrief/internal/telemetry"
)

func main() {
	// load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		slog.Error("config load error", "error", err)
		os.Exit(1)
	}
	closeLog := telemetry.InitLogger(telemetry.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	defer closeLog()

	if err := cfg.RequireAI(); err != nil {
		slog.Warn("assessments will fail until a model key is configured", "error", err)
	}

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitBurst, cfg.Server.RateLimitRPS)
	defer limiter.Stop()

	handler := httpserver.NewRouter(app.Service, httpserver.Options{
		Public:      cfg.Public(),
		CORSOrigins: cfg.Server.CORSOrigins,
		APIKeys:     cfg.Server.APIKeys,
		Limiter:     limiter,
		Observer:    app.Metrics,
		Metrics:     app.Metrics.Handler(),
		Checkers:    app.Checkers,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		slog.Info("server listening", "addr", addr, "model", cfg.AI.Model, "auth", len(cfg.Server.APIKeys) > 0)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	slog.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
