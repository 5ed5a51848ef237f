package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tg-chats-collector/internal/boot"
	"tg-chats-collector/internal/config"
	"tg-chats-collector/internal/handler"
	"tg-chats-collector/internal/middleware"
	"tg-chats-collector/internal/observability"
)

func main() {
	cfg := config.Load()
	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	slog.Info("starting collector api", slog.String("environment", cfg.Environment))

	connCtx, connCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer connCancel()

	app, err := boot.New(connCtx, cfg)
	if err != nil {
		slog.Error("failed to initialize", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer app.Close()

	checks := []handler.Check{handler.GatewayCheck(app.Telegram)}
	if app.DB != nil {
		checks = append(checks, handler.DatabaseCheck(app.DB))
	}
	if app.RabbitMQ != nil {
		checks = append(checks, handler.RabbitMQCheck(app.RabbitMQ))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	router := newRouter(routerConfig{
		Chats:          app.Resolver,
		History:        app.History,
		Jobs:           app.Jobs,
		Checks:         checks,
		APIKeyHash:     cfg.APIKeyHash,
		AllowedOrigins: cfg.AllowedOrigins,
		OpenAPI:        middleware.NewOpenAPIValidatorConfig(cfg.OpenAPISpecPath, cfg.IsProduction()),
		Limiter:        middleware.NewRateLimiter(ctx, 5, 10),
		RequestTimeout: cfg.CollectTimeout,
		Profiler:       cfg.IsDevelopment(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.CollectTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("collector api listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	slog.Info("server stopped gracefully")
}
