package changestream

import (
	"testing"

	"github.com/Olzhassss/flappy-bird/pkg/leaderboard"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func insertEvent(id primitive.ObjectID, name string, score interface{}, db, coll string) bson.Raw {
	raw, _ := bson.Marshal(bson.M{
		"_id":           bson.M{"_data": "8264F1C0FFEE"},
		"operationType": "insert",
		"ns":            bson.M{"db": db, "coll": coll},
		"clusterTime":   primitive.Timestamp{T: 12345, I: 1},
		"fullDocument":  bson.M{"_id": id, "name": name, "score": score},
		"documentKey":   bson.M{"_id": id},
	})
	return raw
}

func TestParseEventProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("parseEvent extracts the inserted entry", prop.ForAll(
		func(name, dbName, collName string, score int64) bool {
			id := primitive.NewObjectID()

			event, err := parseEvent(insertEvent(id, name, score, dbName, collName))
			if err != nil {
				return false
			}

			got, ok := event.Entry.Score.Int64()
			return event.ID == "8264F1C0FFEE" &&
				event.OperationType == "insert" &&
				event.Namespace.Database == dbName &&
				event.Namespace.Collection == collName &&
				event.ClusterTime == primitive.Timestamp{T: 12345, I: 1} &&
				event.Entry.ID == id &&
				event.Entry.Name == name &&
				ok && got == score
		},
		gen.AnyString(),
		gen.Identifier(),
		gen.Identifier(),
		gen.Int64(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestParseEventNaNScore(t *testing.T) {
	raw, err := bson.Marshal(bson.M{
		"_id":           bson.M{"_data": "abc"},
		"operationType": "insert",
		"fullDocument":  leaderboard.Entry{ID: primitive.NewObjectID(), Name: "Bob", Score: leaderboard.NaN()},
	})
	require.NoError(t, err)

	event, err := parseEvent(raw)
	require.NoError(t, err)
	assert.True(t, event.Entry.Score.IsNaN())
}

func TestParseEventErrors(t *testing.T) {
	_, err := parseEvent(bson.Raw{0x00, 0x01}) // Invalid BSON
	assert.Error(t, err)

	raw, _ := bson.Marshal(bson.M{"_id": bson.M{"_data": "x"}, "operationType": "insert"})
	_, err = parseEvent(raw)
	assert.Error(t, err, "insert without full document")
}

func BenchmarkParseEvent(b *testing.B) {
	raw := insertEvent(primitive.NewObjectID(), "Anonymous Grand Floppus", int64(99), "testdb", "leaderboard")

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := parseEvent(raw); err != nil {
			b.Fatal(err)
		}
	}
}
