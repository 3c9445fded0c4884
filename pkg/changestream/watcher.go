package changestream

import (
	"context"
	"errors"
	"fmt"

	"github.com/Olzhassss/flappy-bird/pkg/leaderboard"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrMalformedEvent marks a change event that could not be decoded. The stream stays open.
var ErrMalformedEvent = errors.New("malformed change event")

// EntryEvent is a leaderboard insert captured from the change stream
type EntryEvent struct {
	ID            string              `json:"id"`
	OperationType string              `json:"operation_type"`
	Namespace     Namespace           `json:"namespace"`
	Entry         leaderboard.Entry   `json:"entry"`
	ClusterTime   primitive.Timestamp `json:"cluster_time"`
	ResumeToken   bson.Raw            `json:"-"`
}

type Namespace struct {
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

// Watcher defines the interface for following new leaderboard entries
type Watcher interface {
	// Watch starts monitoring the change stream from the given resume token.
	// Returns a channel of entry events and an error channel.
	Watch(ctx context.Context, resumeToken bson.Raw) (<-chan EntryEvent, <-chan error)

	// Close gracefully shuts down the watcher
	Close() error
}

// MongoWatcher implements the Watcher interface for MongoDB
type MongoWatcher struct {
	collection *mongo.Collection
	stream     *mongo.ChangeStream
}

// NewMongoWatcher creates a new MongoWatcher instance
func NewMongoWatcher(coll *mongo.Collection) *MongoWatcher {
	return &MongoWatcher{
		collection: coll,
	}
}

// insertsOnly filters the stream down to new entries; the collection is append-only
var insertsOnly = mongo.Pipeline{
	{{Key: "$match", Value: bson.D{{Key: "operationType", Value: "insert"}}}},
}

// Watch starts monitoring the change stream
func (w *MongoWatcher) Watch(ctx context.Context, resumeToken bson.Raw) (<-chan EntryEvent, <-chan error) {
	eventChan := make(chan EntryEvent)
	errChan := make(chan error, 1)

	go func() {
		defer close(eventChan)
		defer close(errChan)

		opts := options.ChangeStream()
		if resumeToken != nil {
			opts.SetResumeAfter(resumeToken)
		}

		stream, err := w.collection.Watch(ctx, insertsOnly, opts)
		if err != nil {
			errChan <- fmt.Errorf("failed to open change stream: %w", err)
			return
		}
		w.stream = stream
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			event, err := parseEvent(stream.Current)
			if err != nil {
				select {
				case errChan <- fmt.Errorf("%w: %v", ErrMalformedEvent, err):
				default:
				}
				continue
			}

			// Attach the actual resume token from the stream
			event.ResumeToken = stream.ResumeToken()

			select {
			case eventChan <- event:
			case <-ctx.Done():
				return
			}
		}

		if err := stream.Err(); err != nil && ctx.Err() == nil {
			errChan <- fmt.Errorf("change stream error: %w", err)
		}
	}()

	return eventChan, errChan
}

func parseEvent(raw bson.Raw) (EntryEvent, error) {
	var event struct {
		ID            bson.Raw            `bson:"_id"`
		OperationType string              `bson:"operationType"`
		FullDocument  *leaderboard.Entry  `bson:"fullDocument"`
		ClusterTime   primitive.Timestamp `bson:"clusterTime"`
		Namespace     struct {
			DB   string `bson:"db"`
			Coll string `bson:"coll"`
		} `bson:"ns"`
	}

	if err := bson.Unmarshal(raw, &event); err != nil {
		return EntryEvent{}, err
	}
	if event.FullDocument == nil {
		return EntryEvent{}, fmt.Errorf("%s event without full document", event.OperationType)
	}

	return EntryEvent{
		ID:            eventID(event.ID),
		OperationType: event.OperationType,
		Entry:         *event.FullDocument,
		ClusterTime:   event.ClusterTime,
		Namespace: Namespace{
			Database:   event.Namespace.DB,
			Collection: event.Namespace.Coll,
		},
	}, nil
}

// eventID flattens the change event _id (a resume token document) into a string
func eventID(id bson.Raw) string {
	if data, ok := id.Lookup("_data").StringValueOK(); ok {
		return data
	}
	return id.String()
}

// Close gracefully shuts down the watcher
func (w *MongoWatcher) Close() error {
	if w.stream != nil {
		return w.stream.Close(context.Background())
	}
	return nil
}
