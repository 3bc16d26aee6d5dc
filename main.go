package main

import (
	"context"
	"encoding/json"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"royalchoice/internal/cache"
	"royalchoice/internal/config"
	"royalchoice/internal/services"
	"royalchoice/internal/storage"
	"royalchoice/pkg/logger"
	"royalchoice/pkg/rabbitmq"

	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

func main() {
	// --- Configuration ---
	cfg, envLoaded := config.Load()

	log, err := logger.New(logger.Options{Service: "royalchoice", Env: cfg.Env, Level: cfg.LogLevel})
	if err != nil {
		stdlog.Fatalf("failed to initialise logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	if !envLoaded {
		log.Info("no .env file found, using process environment")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openStorage(ctx, cfg, log)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Warn("error closing storage", zap.Error(err))
		}
	}()

	infra := Infra{Logger: log}

	// --- Optional Redis cache ---
	if redisClient := connectRedis(ctx, cfg, log); redisClient != nil {
		defer redisClient.Close()
		infra.Cache = cache.NewRedisProductCache(redisClient, cfg.FeaturedCacheTTL)
	}

	// --- Optional RabbitMQ ---
	if mqClient := connectRabbitMQ(cfg, log); mqClient != nil {
		defer mqClient.Close()
		infra.Publisher = mqClient
	}

	// --- Payments ---
	if cfg.StripeSecretKey != "" {
		infra.Gateway = services.NewStripeGateway(cfg.StripeSecretKey)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, payment intents are disabled")
	}

	app, _ := NewApp(cfg, store, infra)

	// --- Start HTTP Server ---
	addr := ":" + cfg.Port
	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", addr), zap.Bool("storage_available", store.Available))
		serverErr <- app.Listen(addr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			log.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("error during fiber shutdown", zap.Error(err))
		}
	}
	log.Info("server gracefully stopped")
}

// openStorage connects to the configured backend and runs the cart migration.
// When the backend is unreachable the returned store is degraded: the server
// still starts and data routes fail until restart.
func openStorage(ctx context.Context, cfg config.Config, log *zap.Logger) *storage.Store {
	store, err := storage.Open(ctx, storage.Options{
		Driver:         cfg.StorageDriver,
		MongoURI:       cfg.MongoURI,
		MongoDatabase:  cfg.MongoDatabase,
		DSN:            cfg.DatabaseDSN,
		ConnectTimeout: cfg.ConnectTimeout,
		Logger:         log,
	})
	if err != nil {
		log.Error("storage connection failed, starting in degraded mode",
			zap.String("driver", cfg.StorageDriver), zap.Error(err))
		return storage.Unavailable(cfg.StorageDriver, err)
	}
	log.Info("storage connected", zap.String("driver", store.Driver))

	if _, err := services.NewMigrationService(store.Migrator, log).Run(ctx); err != nil {
		log.Error("cart migration failed, continuing startup", zap.Error(err))
	}
	return store
}

func connectRedis(ctx context.Context, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unavailable, featured cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
		return nil
	}
	log.Info("redis connected", zap.String("addr", cfg.RedisAddr))
	return client
}

func connectRabbitMQ(cfg config.Config, log *zap.Logger) *rabbitmq.Client {
	if cfg.RabbitMQURL == "" {
		return nil
	}
	mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
	if err != nil {
		log.Warn("rabbitmq unavailable, order events disabled", zap.Error(err))
		return nil
	}

	err = mqClient.Consume(rabbitmq.OrderEventsQueue, orderEventLogger(log), func(tag uint64, err error) {
		log.Warn("order event rejected", zap.Uint64("delivery_tag", tag), zap.Error(err))
	})
	if err != nil {
		log.Warn("failed to start order event consumer", zap.Error(err))
	}
	return mqClient
}

type orderEvent struct {
	Event           string  `json:"event"`
	OrderID         string  `json:"orderId"`
	UserID          string  `json:"userId"`
	TotalAmount     float64 `json:"totalAmount"`
	PaymentIntentID string  `json:"paymentIntentId"`
}

// orderEventLogger records order events published on the queue.
func orderEventLogger(log *zap.Logger) func(amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var ev orderEvent
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			return fmt.Errorf("decode order event: %w", err)
		}
		if ev.OrderID == "" {
			return fmt.Errorf("order event %q without orderId", ev.Event)
		}
		log.Info("order event received",
			zap.String("event", ev.Event),
			zap.String("order_id", ev.OrderID),
			zap.String("user_id", ev.UserID),
			zap.Float64("total_amount", ev.TotalAmount),
			zap.String("payment_intent_id", ev.PaymentIntentID))
		return nil
	}
}
