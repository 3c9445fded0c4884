package watcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/Olzhassss/flappy-bird/pkg/changestream"
	"github.com/Olzhassss/flappy-bird/pkg/leaderboard"
	"github.com/Olzhassss/flappy-bird/pkg/logger"
	"github.com/Olzhassss/flappy-bird/pkg/producer"
	"github.com/Olzhassss/flappy-bird/pkg/retry"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mocks
type MockTokenStore struct{ mock.Mock }

func (m *MockTokenStore) Save(ctx context.Context, token bson.Raw) error {
	return m.Called(ctx, token).Error(0)
}
func (m *MockTokenStore) Load(ctx context.Context) (bson.Raw, error) {
	args := m.Called(ctx)
	token, _ := args.Get(0).(bson.Raw)
	return token, args.Error(1)
}

type MockProducer struct{ mock.Mock }

func (m *MockProducer) PublishAsync(ctx context.Context, key, value []byte) <-chan producer.ProduceResult {
	args := m.Called(ctx, key, value)
	ch := make(chan producer.ProduceResult, 1)
	ch <- producer.ProduceResult{Error: args.Error(0)}
	close(ch)
	return ch
}
func (m *MockProducer) Close() error { return m.Called().Error(0) }

type MockWatcher struct{ mock.Mock }

func (m *MockWatcher) Watch(ctx context.Context, token bson.Raw) (<-chan changestream.EntryEvent, <-chan error) {
	args := m.Called(ctx, token)
	return args.Get(0).(<-chan changestream.EntryEvent), args.Get(1).(<-chan error)
}
func (m *MockWatcher) Close() error { return m.Called().Error(0) }

func fastRetry(attempts int) retry.RetryOptions {
	return retry.RetryOptions{MaxAttempts: attempts, InitialInterval: time.Microsecond, Multiplier: 1.0, MaxInterval: time.Microsecond}
}

func newEvent(eventID, name string, score int64) changestream.EntryEvent {
	return changestream.EntryEvent{
		ID:            eventID,
		OperationType: "insert",
		Entry: leaderboard.Entry{
			ID:    primitive.NewObjectID(),
			Name:  name,
			Score: leaderboard.IntScore(score),
		},
		ResumeToken: bson.Raw(eventID),
	}
}

func TestServiceCoordinationProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	l := logger.NewNop()

	properties.Property("token is saved only after Kafka success", prop.ForAll(
		func(eventID string) bool {
			mt := new(MockTokenStore)
			mp := new(MockProducer)
			mw := new(MockWatcher)

			s := NewService(l, mt, mp, mw)
			s.retryOpts = fastRetry(1)

			event := newEvent(eventID, "Ann", 42)
			mp.On("PublishAsync", mock.Anything, []byte(event.Entry.ID.Hex()), mock.Anything).Return(nil)
			mt.On("Save", mock.Anything, event.ResumeToken).Return(nil)

			err := s.processEvent(context.Background(), event)

			return err == nil && mt.AssertCalled(t, "Save", mock.Anything, event.ResumeToken)
		},
		gen.Identifier(),
	))

	properties.Property("token is not saved when Kafka fails", prop.ForAll(
		func(attempts int) bool {
			mt := new(MockTokenStore)
			mp := new(MockProducer)
			mw := new(MockWatcher)

			s := NewService(l, mt, mp, mw)
			s.retryOpts = fastRetry(attempts)

			mp.On("PublishAsync", mock.Anything, mock.Anything, mock.Anything).
				Return(errors.New("broker unavailable")).Times(attempts)

			err := s.processEvent(context.Background(), newEvent("evt", "Ann", 1))

			return err != nil && mp.AssertExpectations(t) && mt.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		},
		gen.IntRange(1, 4),
	))

	properties.Property("token save is retried on failure", prop.ForAll(
		func(maxAttempts int) bool {
			mt := new(MockTokenStore)
			mp := new(MockProducer)
			mw := new(MockWatcher)

			s := NewService(l, mt, mp, mw)
			s.retryOpts = fastRetry(maxAttempts)

			event := newEvent("test", "Ann", 7)
			mp.On("PublishAsync", mock.Anything, mock.Anything, mock.Anything).Return(nil)
			mt.On("Save", mock.Anything, event.ResumeToken).Return(errors.New("save failed")).Times(maxAttempts)

			err := s.processEvent(context.Background(), event)

			return err != nil && mt.AssertExpectations(t)
		},
		gen.IntRange(2, 5),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProcessEventPublishesEntryPayload(t *testing.T) {
	mt := new(MockTokenStore)
	mp := new(MockProducer)
	s := NewService(logger.NewNop(), mt, mp, new(MockWatcher))
	s.retryOpts = fastRetry(1)

	event := newEvent("evt-1", "Ann", 42)
	var published []byte
	mp.On("PublishAsync", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(2).([]byte) }).
		Return(nil)
	mt.On("Save", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, s.processEvent(context.Background(), event))

	var decoded changestream.EntryEvent
	require.NoError(t, json.Unmarshal(published, &decoded))
	assert.Equal(t, event.Entry.ID, decoded.Entry.ID)
	assert.Equal(t, "Ann", decoded.Entry.Name)
	assert.Equal(t, leaderboard.IntScore(42), decoded.Entry.Score)
	assert.Nil(t, decoded.ResumeToken)
}

func TestStartResumesFromSavedToken(t *testing.T) {
	mt := new(MockTokenStore)
	mp := new(MockProducer)
	mw := new(MockWatcher)
	s := NewService(logger.NewNop(), mt, mp, mw)
	s.retryOpts = fastRetry(1)

	saved := bson.Raw("saved-token")
	events := make(chan changestream.EntryEvent, 2)
	errs := make(chan error)
	first, second := newEvent("e1", "Ann", 1), newEvent("e2", "Bob", 2)
	events <- first
	events <- second
	close(events)
	close(errs)

	mt.On("Load", mock.Anything).Return(saved, nil)
	mw.On("Watch", mock.Anything, saved).Return((<-chan changestream.EntryEvent)(events), (<-chan error)(errs))
	mp.On("PublishAsync", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	mt.On("Save", mock.Anything, first.ResumeToken).Return(nil).Once()
	mt.On("Save", mock.Anything, second.ResumeToken).Return(nil).Once()
	mw.On("Close").Return(nil)
	mp.On("Close").Return(nil)

	assert.NoError(t, s.Start(context.Background()))
	mt.AssertExpectations(t)
	mw.AssertCalled(t, "Close")
	mp.AssertCalled(t, "Close")
}

func TestStartSkipsMalformedEvents(t *testing.T) {
	mt := new(MockTokenStore)
	mp := new(MockProducer)
	mw := new(MockWatcher)
	s := NewService(logger.NewNop(), mt, mp, mw)

	events := make(chan changestream.EntryEvent)
	errs := make(chan error, 1)
	errs <- fmt.Errorf("%w: bad name type", changestream.ErrMalformedEvent)
	close(errs)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	mt.On("Load", mock.Anything).Return(nil, nil)
	mw.On("Watch", mock.Anything, bson.Raw(nil)).Return((<-chan changestream.EntryEvent)(events), (<-chan error)(errs))
	mw.On("Close").Return(nil)
	mp.On("Close").Return(nil)

	err := s.Start(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStartFailsOnStreamError(t *testing.T) {
	mt := new(MockTokenStore)
	mp := new(MockProducer)
	mw := new(MockWatcher)
	s := NewService(logger.NewNop(), mt, mp, mw)

	events := make(chan changestream.EntryEvent)
	errs := make(chan error, 1)
	errs <- errors.New("change stream error: resume token not found")

	mt.On("Load", mock.Anything).Return(nil, nil)
	mw.On("Watch", mock.Anything, bson.Raw(nil)).Return((<-chan changestream.EntryEvent)(events), (<-chan error)(errs))
	mw.On("Close").Return(nil)
	mp.On("Close").Return(nil)

	err := s.Start(context.Background())
	assert.ErrorContains(t, err, "resume token not found")
}

func TestStartFailsWhenTokenLoadFails(t *testing.T) {
	mt := new(MockTokenStore)
	mp := new(MockProducer)
	mw := new(MockWatcher)
	s := NewService(logger.NewNop(), mt, mp, mw)

	mt.On("Load", mock.Anything).Return(nil, errors.New("redis down"))
	mw.On("Close").Return(nil)
	mp.On("Close").Return(nil)

	err := s.Start(context.Background())
	assert.ErrorContains(t, err, "failed to load resume token")
	mw.AssertNotCalled(t, "Watch", mock.Anything, mock.Anything)
}

func TestStopJoinsErrors(t *testing.T) {
	mp := new(MockProducer)
	mw := new(MockWatcher)
	s := NewService(logger.NewNop(), new(MockTokenStore), mp, mw)

	mw.On("Close").Return(errors.New("stream close"))
	mp.On("Close").Return(errors.New("writer close"))

	err := s.Stop(context.Background())
	assert.ErrorContains(t, err, "stream close")
	assert.ErrorContains(t, err, "writer close")
}
