package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tg-chats-collector/internal/boot"
	"tg-chats-collector/internal/config"
	"tg-chats-collector/internal/handler"
	"tg-chats-collector/internal/messaging"
	"tg-chats-collector/internal/observability"
	"tg-chats-collector/internal/scheduler"
)

func main() {
	cfg := config.Load()
	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	slog.Info("starting collector worker")

	if cfg.RabbitMQURL == "" && cfg.SyncSchedule == "" {
		slog.Error("nothing to do: set RABBITMQ_URL to run collect jobs or SYNC_SCHEDULE to sync chats")
		os.Exit(1)
	}

	connCtx, connCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer connCancel()

	app, err := boot.New(connCtx, cfg)
	if err != nil {
		slog.Error("failed to initialize", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	if app.RabbitMQ != nil {
		msgs, err := app.RabbitMQ.ConsumeCollectJobs()
		if err != nil {
			slog.Error("failed to start consuming", slog.String("error", err.Error()))
			os.Exit(1)
		}

		consumer := messaging.NewJobConsumer(app.Jobs, cfg.CollectTimeout)
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumer.Run(ctx, msgs)
		}()
		slog.Info("collect job consumer started", slog.String("queue", messaging.JobsQueue))
	}

	var sched *scheduler.Scheduler
	if cfg.SyncSchedule != "" {
		if len(cfg.SyncChatIDs) == 0 {
			slog.Warn("SYNC_SCHEDULE set without SYNC_CHAT_IDS, scheduled syncs will do nothing")
		}
		sched, err = scheduler.New(cfg.SyncSchedule, app.Sync(), cfg.CollectTimeout)
		if err != nil {
			slog.Error("failed to create scheduler", slog.String("error", err.Error()))
			os.Exit(1)
		}
		sched.Start()
	}

	r := chi.NewRouter()
	checks := []handler.Check{handler.GatewayCheck(app.Telegram)}
	if app.DB != nil {
		checks = append(checks, handler.DatabaseCheck(app.DB))
	}
	if app.RabbitMQ != nil {
		checks = append(checks, handler.RabbitMQCheck(app.RabbitMQ))
	}
	r.Get("/health", handler.Health)
	r.Get("/health/ready", handler.Ready(checks...))
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		slog.Info("worker metrics listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down collector worker")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			slog.Warn("scheduler stop timed out", slog.String("error", err.Error()))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown error", slog.String("error", err.Error()))
	}

	cancel()
	wg.Wait()

	slog.Info("collector worker stopped")
}
