// Package boot wires the collaborators shared by the collector binaries.
package boot

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"tg-chats-collector/internal/cache"
	"tg-chats-collector/internal/collector"
	"tg-chats-collector/internal/config"
	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/messaging"
	"tg-chats-collector/internal/repository/postgres"
	"tg-chats-collector/internal/service"
	"tg-chats-collector/internal/telegram"
)

// App holds the wired collaborators. DB, Redis, RabbitMQ and Store are nil
// when their URL is not configured.
type App struct {
	Config   *config.Config
	Telegram *telegram.GatewayClient
	DB       *sql.DB
	Redis    *goredis.Client
	RabbitMQ *messaging.RabbitMQ
	Store    *postgres.MessageRepository

	Resolver *service.ChatResolver
	Engine   *collector.Engine
	History  *service.HistoryService
	Jobs     *service.JobService
}

// New connects the configured dependencies and builds the services on top of
// them. ctx bounds the connection attempts. On error everything opened so far
// is closed.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	app := &App{
		Config:   cfg,
		Telegram: telegram.NewGatewayClient(cfg.GatewayURL, cfg.GatewayToken),
	}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	if cfg.DatabaseURL != "" {
		if app.DB, err = config.NewPostgresConnection(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err = postgres.EnsureSchema(ctx, app.DB); err != nil {
			return nil, err
		}
		if err = config.RegisterDBStats(prometheus.DefaultRegisterer, app.DB, "collector"); err != nil {
			return nil, fmt.Errorf("register database metrics: %w", err)
		}
		app.Store = postgres.NewMessageRepository(app.DB)
		slog.Info("connected to postgresql")
	}

	var chatCache domain.ChatCache
	if cfg.RedisURL != "" {
		if app.Redis, err = cache.NewRedisClient(ctx, cfg.RedisURL); err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		chatCache = cache.NewChatCache(app.Redis, cfg.ChatCacheTTL)
		slog.Info("connected to redis")
	}

	var queue service.JobQueue
	var opts []service.HistoryOption
	if cfg.RabbitMQURL != "" {
		if app.RabbitMQ, err = messaging.NewRabbitMQWithRetry(ctx, cfg.RabbitMQURL); err != nil {
			return nil, fmt.Errorf("connect to rabbitmq: %w", err)
		}
		queue = app.RabbitMQ
		opts = append(opts, service.WithPublisher(app.RabbitMQ))
		slog.Info("connected to rabbitmq")
	}
	if app.Store != nil {
		opts = append(opts, service.WithStore(app.Store))
	}

	collectorCfg := cfg.Collector()
	app.Resolver = service.NewChatResolver(app.Telegram, chatCache, cfg.RemoteCallTimeout)
	app.Engine = collector.NewEngine(app.Telegram, collectorCfg)
	app.History = service.NewHistoryService(app.Resolver, app.Engine, collectorCfg, opts...)
	app.Jobs = service.NewJobService(queue, app.History)
	return app, nil
}

// Sync builds the incremental sync over the configured chats. It returns nil
// when no store is configured.
func (a *App) Sync() *service.SyncService {
	if a.Store == nil {
		return nil
	}
	return service.NewSyncService(a.Engine, a.Store, a.Config.SyncChatIDs, a.Config.Lookback())
}

// Close releases every opened connection.
func (a *App) Close() {
	if a.RabbitMQ != nil {
		if err := a.RabbitMQ.Close(); err != nil {
			slog.Warn("rabbitmq close failed", slog.String("error", err.Error()))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Warn("redis close failed", slog.String("error", err.Error()))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			slog.Warn("database close failed", slog.String("error", err.Error()))
		}
	}
}
