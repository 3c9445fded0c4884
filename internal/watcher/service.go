package watcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/Olzhassss/flappy-bird/pkg/changestream"
	"github.com/Olzhassss/flappy-bird/pkg/logger"
	"github.com/Olzhassss/flappy-bird/pkg/metrics"
	"github.com/Olzhassss/flappy-bird/pkg/producer"
	"github.com/Olzhassss/flappy-bird/pkg/retry"

	"go.uber.org/zap"
)

// Service follows new leaderboard entries and publishes them to Kafka
type Service struct {
	logger     *logger.Logger
	tokenStore changestream.TokenStore
	producer   producer.Producer
	watcher    changestream.Watcher
	retryOpts  retry.RetryOptions
}

// NewService creates a new Watcher service instance
func NewService(
	logger *logger.Logger,
	tokenStore changestream.TokenStore,
	producer producer.Producer,
	watcher changestream.Watcher,
) *Service {
	return &Service{
		logger:     logger,
		tokenStore: tokenStore,
		producer:   producer,
		watcher:    watcher,
		retryOpts:  retry.DefaultOptions(),
	}
}

// Stop closes the change stream and the producer
func (s *Service) Stop(ctx context.Context) error {
	s.logger.Info("stopping watcher service")

	var errs []error
	if err := s.watcher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close watcher: %w", err))
	}
	if err := s.producer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close producer: %w", err))
	}
	return errors.Join(errs...)
}

// Start runs the event loop until ctx is canceled or the stream fails
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("starting watcher service")

	defer func() {
		if err := s.Stop(context.Background()); err != nil {
			s.logger.Error("error during service stop", err)
		}
	}()

	// 1. Load resume token
	resumeToken, err := s.tokenStore.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load resume token: %w", err)
	}
	if resumeToken == nil {
		s.logger.Info("no resume token found, watching from now")
	}

	// 2. Start watching
	eventChan, errChan := s.watcher.Watch(ctx, resumeToken)

	// 3. Main event loop
	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return ctx.Err()
			}
			if err := s.processEvent(ctx, event); err != nil {
				s.logger.Error("failed to process event", err, zap.String("event_id", event.ID))
				return err
			}
		case err, ok := <-errChan:
			if !ok {
				errChan = nil
				continue
			}
			if errors.Is(err, changestream.ErrMalformedEvent) {
				s.logger.Warn("skipping malformed change event", zap.Error(err))
				continue
			}
			return fmt.Errorf("watcher error: %w", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Service) processEvent(ctx context.Context, event changestream.EntryEvent) error {
	// a. Serialize event
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	key := []byte(event.Entry.ID.Hex())

	// b. Publish to Kafka with retry
	err = retry.Do(ctx, func() error {
		result := <-s.producer.PublishAsync(ctx, key, data)
		return result.Error
	}, s.retryOpts)
	if err != nil {
		metrics.WatcherPublishErrorsTotal.Inc()
		return fmt.Errorf("failed to publish event to kafka after retries: %w", err)
	}
	metrics.WatcherEventsCapturedTotal.Inc()

	// c. Save resume token only once Kafka has the event
	err = retry.Do(ctx, func() error {
		return s.tokenStore.Save(ctx, event.ResumeToken)
	}, s.retryOpts)
	if err != nil {
		return fmt.Errorf("failed to save resume token after retries: %w", err)
	}
	metrics.WatcherTokenSavesTotal.Inc()

	s.logger.Debug("entry published",
		zap.String("event_id", event.ID),
		zap.String("entry_id", string(key)),
		zap.String("name", event.Entry.Name))
	return nil
}
