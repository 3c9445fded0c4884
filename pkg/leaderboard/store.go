package leaderboard

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store defines the persistence operations the leaderboard endpoints rely on
type Store interface {
	// Insert appends the entry, assigning an ID when it has none.
	Insert(ctx context.Context, entry *Entry) error

	// Top returns at most n entries ordered by score, highest first.
	// Order among equal scores is whatever the backing store yields.
	Top(ctx context.Context, n int64) ([]Entry, error)
}

// collection is the subset of *mongo.Collection used by MongoStore
type collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// MongoStore implements Store on a MongoDB collection
type MongoStore struct {
	coll collection
}

// NewMongoStore creates a new MongoStore instance
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// Insert stores a single entry
func (s *MongoStore) Insert(ctx context.Context, entry *Entry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

// Top runs find().sort({score: -1}).limit(n)
func (s *MongoStore) Top(ctx context.Context, n int64) ([]Entry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "score", Value: -1}}).
		SetLimit(n)

	cursor, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}

	entries := make([]Entry, 0, n)
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard: %w", err)
	}
	return entries, nil
}

// EnsureIndexes creates the descending score index backing Top
func EnsureIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "score", Value: -1}},
		Options: options.Index().SetName("score_desc"),
	})
	if err != nil {
		return fmt.Errorf("failed to create score index: %w", err)
	}
	return nil
}
