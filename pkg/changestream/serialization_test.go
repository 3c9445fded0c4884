package changestream

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/Olzhassss/flappy-bird/pkg/leaderboard"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSerializationRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("JSON serialization preserves the entry event", prop.ForAll(
		func(id, db, coll, name string, score int64, nan bool) bool {
			s := leaderboard.IntScore(score)
			if nan {
				s = leaderboard.NaN()
			}
			event := EntryEvent{
				ID:            id,
				OperationType: "insert",
				Namespace:     Namespace{Database: db, Collection: coll},
				Entry:         leaderboard.Entry{ID: primitive.NewObjectID(), Name: name, Score: s},
				ClusterTime:   primitive.Timestamp{T: 100, I: 1},
			}

			data, err := json.Marshal(event)
			if err != nil {
				return false
			}

			var decoded EntryEvent
			if err := json.Unmarshal(data, &decoded); err != nil {
				return false
			}

			return decoded.ID == event.ID &&
				decoded.OperationType == event.OperationType &&
				decoded.Namespace == event.Namespace &&
				decoded.ClusterTime == event.ClusterTime &&
				decoded.Entry == event.Entry
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.Identifier(),
		gen.Identifier(),
		gen.Int64(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
