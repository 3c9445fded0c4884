package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/Olzhassss/flappy-bird/pkg/consumer"
	"github.com/Olzhassss/flappy-bird/pkg/logger"
	"github.com/Olzhassss/flappy-bird/pkg/parser"
	"github.com/Olzhassss/flappy-bird/pkg/worker"

	"go.uber.org/zap"
)

// Pool is the part of the worker pool the service drives
type Pool interface {
	Start(ctx context.Context)
	Submit(ctx context.Context, job worker.Job) error
	Shutdown(ctx context.Context) error
}

// Service archives leaderboard entries consumed from Kafka
type Service struct {
	logger     *logger.Logger
	consumer   consumer.Consumer
	workerPool Pool
}

// NewService creates a new Syncer service instance
func NewService(
	l *logger.Logger,
	c consumer.Consumer,
	p Pool,
) *Service {
	return &Service{
		logger:     l,
		consumer:   c,
		workerPool: p,
	}
}

// Start begins the message consumption and processing loop
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("starting syncer service")

	// 1. Start worker pool
	s.workerPool.Start(ctx)

	// 2. Start consuming
	msgChan, errChan := s.consumer.Consume(ctx)

	// 3. Main loop
	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				return s.Shutdown(context.Background())
			}
			if err := s.handleMessage(ctx, msg); err != nil {
				s.logger.Error("failed to handle message", err, zap.Int64("offset", msg.Offset))
			}

		case err, ok := <-errChan:
			if !ok {
				errChan = nil
				continue
			}
			shutdownErr := s.Shutdown(context.Background())
			return errors.Join(fmt.Errorf("consumer error: %w", err), shutdownErr)

		case <-ctx.Done():
			return s.Shutdown(context.Background())
		}
	}
}

func (s *Service) handleMessage(ctx context.Context, msg consumer.Message) error {
	// a. Parse message
	entry, err := parser.ParseArchivedEntry(msg.Value)
	if err != nil {
		s.logger.Warn("skipping malformed message",
			zap.Error(err),
			zap.Int64("offset", msg.Offset),
			zap.String("event_type", msg.EventType),
			zap.ByteString("payload", msg.Value))

		// Commit so the poison message is not redelivered
		return s.consumer.Commit(ctx, msg)
	}

	// b. Hand over to the pool, which commits the offset after the write
	return s.workerPool.Submit(ctx, worker.Job{
		Entry:   entry,
		Message: msg,
	})
}

// Shutdown flushes pending batches and closes the consumer
func (s *Service) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down syncer service")

	errPool := s.workerPool.Shutdown(ctx)
	errCons := s.consumer.Close()

	if errPool != nil || errCons != nil {
		return fmt.Errorf("shutdown errors: pool=%v, consumer=%v", errPool, errCons)
	}
	return nil
}
