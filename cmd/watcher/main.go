package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Olzhassss/flappy-bird/internal/watcher"
	"github.com/Olzhassss/flappy-bird/pkg/changestream"
	"github.com/Olzhassss/flappy-bird/pkg/config"
	"github.com/Olzhassss/flappy-bird/pkg/kv"
	"github.com/Olzhassss/flappy-bird/pkg/logger"
	"github.com/Olzhassss/flappy-bird/pkg/producer"
	"github.com/Olzhassss/flappy-bird/pkg/server"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const entryCreatedEvent = "leaderboard.entry.created"

func main() {
	// 1. Load config
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"), config.ServiceWatcher)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	l, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: config.ServiceWatcher,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer l.Sync()

	l.Info("watcher service initializing", zap.String("env", cfg.Environment))

	// 3. Initialize MongoDB
	mongoCtx, mongoCancel := context.WithTimeout(context.Background(), cfg.MongoDB.ConnectTimeout)
	defer mongoCancel()
	client, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.MongoDB.URI))
	if err != nil {
		l.Error("failed to connect to mongodb", err)
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())

	coll := client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection)

	// 4. Initialize components
	var checkpoints kv.Store
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		checkpoints = kv.NewRedisStore(rdb, "flappy-bird:")
		l.Info("keeping resume token in redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		checkpoints = kv.NewFileStore(cfg.Watcher.ResumeTokenDir)
		l.Info("keeping resume token on disk", zap.String("dir", cfg.Watcher.ResumeTokenDir))
	}
	tokenStore := changestream.NewCheckpoint(checkpoints, cfg.Watcher.ResumeTokenKey)

	kafkaProducer := producer.NewKafkaProducer(producer.Config{
		Brokers:   cfg.Kafka.Brokers,
		Topic:     cfg.Kafka.Topic,
		EventType: entryCreatedEvent,
	})
	streamWatcher := changestream.NewMongoWatcher(coll)

	// 5. Create service
	svc := watcher.NewService(l, tokenStore, kafkaProducer, streamWatcher)

	// 6. Start observability server
	obsServer := server.New(cfg.HTTP.MetricsAddr, l, func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	})
	go func() {
		if err := obsServer.Start(); err != nil {
			l.Error("observability server failed", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Start service
	l.Info("watcher service starting")
	if err := svc.Start(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			l.Info("watcher service stopping")
		} else {
			l.Error("watcher service failed", err)
		}
	}

	// Clean up observability server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	obsServer.Shutdown(shutdownCtx)
}
