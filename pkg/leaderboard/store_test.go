package leaderboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MockCollection struct{ mock.Mock }

func (m *MockCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	args := m.Called(ctx, document)
	res, _ := args.Get(0).(*mongo.InsertOneResult)
	return res, args.Error(1)
}

func (m *MockCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	args := m.Called(ctx, filter, opts)
	cur, _ := args.Get(0).(*mongo.Cursor)
	return cur, args.Error(1)
}

func TestMongoStoreInsert(t *testing.T) {
	mc := new(MockCollection)
	s := &MongoStore{coll: mc}

	mc.On("InsertOne", mock.Anything, mock.AnythingOfType("*leaderboard.Entry")).
		Return(&mongo.InsertOneResult{}, nil)

	entry := &Entry{Name: "Ann", Score: IntScore(42)}
	require.NoError(t, s.Insert(context.Background(), entry))
	assert.False(t, entry.ID.IsZero(), "insert should assign an id")
	mc.AssertNumberOfCalls(t, "InsertOne", 1)
}

func TestMongoStoreInsertKeepsID(t *testing.T) {
	mc := new(MockCollection)
	s := &MongoStore{coll: mc}
	id := primitive.NewObjectID()

	mc.On("InsertOne", mock.Anything, mock.Anything).Return(&mongo.InsertOneResult{InsertedID: id}, nil)

	entry := &Entry{ID: id, Name: "Ann", Score: IntScore(1)}
	require.NoError(t, s.Insert(context.Background(), entry))
	assert.Equal(t, id, entry.ID)
}

func TestMongoStoreInsertError(t *testing.T) {
	mc := new(MockCollection)
	s := &MongoStore{coll: mc}
	dbErr := errors.New("connection refused")

	mc.On("InsertOne", mock.Anything, mock.Anything).Return(nil, dbErr)

	err := s.Insert(context.Background(), &Entry{Name: "Ann", Score: IntScore(1)})
	assert.ErrorIs(t, err, dbErr)
}

func TestMongoStoreTop(t *testing.T) {
	mc := new(MockCollection)
	s := &MongoStore{coll: mc}

	docs := []interface{}{
		bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "Ann"}, {Key: "score", Value: int64(42)}},
		bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "Cid"}, {Key: "score", Value: int32(7)}},
	}
	cursor, err := mongo.NewCursorFromDocuments(docs, nil, nil)
	require.NoError(t, err)

	var captured []*options.FindOptions
	mc.On("Find", mock.Anything, bson.D{}, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(2).([]*options.FindOptions)
		}).
		Return(cursor, nil)

	entries, err := s.Top(context.Background(), DefaultLimit)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Ann", entries[0].Name)
	assert.Equal(t, IntScore(42), entries[0].Score)
	assert.Equal(t, IntScore(7), entries[1].Score)

	require.Len(t, captured, 1)
	assert.Equal(t, bson.D{{Key: "score", Value: -1}}, captured[0].Sort)
	require.NotNil(t, captured[0].Limit)
	assert.Equal(t, int64(DefaultLimit), *captured[0].Limit)
}

func TestMongoStoreTopEmpty(t *testing.T) {
	mc := new(MockCollection)
	s := &MongoStore{coll: mc}

	cursor, err := mongo.NewCursorFromDocuments(nil, nil, nil)
	require.NoError(t, err)
	mc.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(cursor, nil)

	entries, err := s.Top(context.Background(), DefaultLimit)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestMongoStoreTopError(t *testing.T) {
	mc := new(MockCollection)
	s := &MongoStore{coll: mc}

	mc.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	_, err := s.Top(context.Background(), DefaultLimit)
	assert.Error(t, err)
}
