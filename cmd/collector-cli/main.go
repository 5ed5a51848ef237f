package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"tg-chats-collector/internal/boot"
	"tg-chats-collector/internal/config"
	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/observability"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(openApp).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// openApp connects the configured dependencies for one command.
func openApp(ctx context.Context, logLevel string) (*env, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	observability.InitLoggerTo(os.Stderr, logLevel, "text")

	connCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	app, err := boot.New(connCtx, cfg)
	if err != nil {
		return nil, err
	}

	e := &env{
		chats:   app.Resolver,
		history: app.History,
		timeout: cfg.CollectTimeout,
		close:   app.Close,
	}
	if app.RabbitMQ != nil {
		e.results = app.RabbitMQ.SubscribeResults
	} else {
		e.results = func() (<-chan amqp.Delivery, error) { return nil, domain.ErrQueueUnavailable }
	}
	return e, nil
}
