package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Olzhassss/flappy-bird/internal/syncer"
	"github.com/Olzhassss/flappy-bird/pkg/config"
	"github.com/Olzhassss/flappy-bird/pkg/consumer"
	"github.com/Olzhassss/flappy-bird/pkg/logger"
	"github.com/Olzhassss/flappy-bird/pkg/retry"
	"github.com/Olzhassss/flappy-bird/pkg/server"
	"github.com/Olzhassss/flappy-bird/pkg/worker"
	"github.com/Olzhassss/flappy-bird/pkg/writer"

	"go.uber.org/zap"
)

func main() {
	// 1. Load config
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"), config.ServiceSyncer)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	l, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: config.ServiceSyncer,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer l.Sync()

	l.Info("syncer service initializing", zap.String("env", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Initialize PostgreSQL
	pgWriter, err := writer.NewPostgresWriter(ctx, writer.PostgresConfig{
		URI:      cfg.Postgres.URI,
		MinConns: int32(cfg.Postgres.MinConns),
		MaxConns: int32(cfg.Postgres.MaxConns),
	}, l)
	if err != nil {
		l.Error("failed to connect to postgres", err)
		os.Exit(1)
	}
	defer pgWriter.Close()

	if err := pgWriter.EnsureSchema(ctx); err != nil {
		l.Error("failed to prepare archive schema", err)
		os.Exit(1)
	}

	// 4. Initialize Consumer
	kafkaConsumer := consumer.NewKafkaConsumer(consumer.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})

	// 5. Initialize Worker Pool
	workerPool := worker.NewWorkerPool(l, pgWriter, kafkaConsumer, worker.Config{
		Workers:       cfg.Syncer.WorkerCount,
		BatchSize:     cfg.Syncer.BatchSize,
		FlushInterval: cfg.Syncer.FlushInterval,
		Retry:         retry.DefaultOptions(),
	})

	// 6. Create service
	svc := syncer.NewService(l, kafkaConsumer, workerPool)

	// 7. Start observability server
	obsServer := server.New(cfg.HTTP.MetricsAddr, l, pgWriter.Ping)
	go func() {
		if err := obsServer.Start(); err != nil {
			l.Error("observability server failed", err)
		}
	}()

	// 8. Start service
	l.Info("syncer service starting")
	if err := svc.Start(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			l.Info("syncer service stopping")
		} else {
			l.Error("syncer service failed", err)
		}
	}

	// Clean up observability server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	obsServer.Shutdown(shutdownCtx)
}
