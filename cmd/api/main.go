package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Olzhassss/flappy-bird/internal/api"
	"github.com/Olzhassss/flappy-bird/pkg/config"
	"github.com/Olzhassss/flappy-bird/pkg/leaderboard"
	"github.com/Olzhassss/flappy-bird/pkg/logger"
	"github.com/Olzhassss/flappy-bird/pkg/server"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

func main() {
	// 1. Load config
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"), config.ServiceAPI)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	l, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: config.ServiceAPI,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer l.Sync()

	l.Info("leaderboard api initializing", zap.String("env", cfg.Environment))

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
	if err := leaderboard.EnsureIndexes(mongoCtx, coll); err != nil {
		// The API still works without the index, only slower
		l.Warn("failed to create leaderboard index", zap.Error(err))
	}

	// 4. Create service
	svc := api.NewService(l.Named("http"), leaderboard.NewMongoStore(coll), api.Options{
		Limit:            cfg.Leaderboard.Limit,
		StrictValidation: cfg.Leaderboard.StrictValidation,
		RequestTimeout:   cfg.Leaderboard.RequestTimeout,
	})

	// 5. Start observability server
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

	// 6. Serve until interrupted
	if err := svc.Start(ctx, cfg.HTTP.Addr, cfg.HTTP.ShutdownTimeout); err != nil {
		if errors.Is(err, context.Canceled) {
			l.Info("leaderboard api stopping")
		} else {
			l.Error("leaderboard api failed", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	obsServer.Shutdown(shutdownCtx)
}
