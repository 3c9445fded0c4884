package parser

import (
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/Olzhassss/flappy-bird/pkg/changestream"
	"github.com/Olzhassss/flappy-bird/pkg/leaderboard"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newEvent(name string, score leaderboard.Score) changestream.EntryEvent {
	return changestream.EntryEvent{
		ID:            "826632...",
		OperationType: "insert",
		Namespace:     changestream.Namespace{Database: "testdb", Collection: "leaderboard"},
		Entry: leaderboard.Entry{
			ID:    primitive.NewObjectID(),
			Name:  name,
			Score: score,
		},
		ClusterTime: primitive.Timestamp{T: 1714564800, I: 1},
	}
}

func TestParseArchivedEntryProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("parsed entry matches event data", prop.ForAll(
		func(name string, score int64) bool {
			event := newEvent(name, leaderboard.IntScore(score))

			data, err := json.Marshal(event)
			if err != nil {
				return false
			}
			entry, err := ParseArchivedEntry(data)
			if err != nil {
				return false
			}

			return entry.ID == event.Entry.ID.Hex() &&
				entry.Name == name &&
				entry.Score != nil && *entry.Score == score
		},
		gen.AnyString(),
		gen.Int64(),
	))

	properties.Property("invalid JSON returns error", prop.ForAll(
		func(data string) bool {
			_, err := ParseArchivedEntry([]byte(data))
			if json.Valid([]byte(data)) {
				return true
			}
			return err != nil
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestParseArchivedEntryTimestamps(t *testing.T) {
	event := newEvent("Ann", leaderboard.IntScore(42))
	data, err := json.Marshal(event)
	require.NoError(t, err)

	entry, err := ParseArchivedEntry(data)
	require.NoError(t, err)
	assert.Equal(t, event.Entry.ID.Timestamp().UTC(), entry.SubmittedAt)
	assert.Equal(t, time.Unix(1714564800, 0).UTC(), entry.CDCTimestamp)
}

func TestParseArchivedEntryNaNScore(t *testing.T) {
	data, err := json.Marshal(newEvent("Bob", leaderboard.NaN()))
	require.NoError(t, err)

	entry, err := ParseArchivedEntry(data)
	require.NoError(t, err)
	assert.Equal(t, "Bob", entry.Name)
	assert.Nil(t, entry.Score)
}

func TestParseArchivedEntryValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*changestream.EntryEvent)
	}{
		{"missing event id", func(e *changestream.EntryEvent) { e.ID = "" }},
		{"not an insert", func(e *changestream.EntryEvent) { e.OperationType = "update" }},
		{"missing entry id", func(e *changestream.EntryEvent) { e.Entry.ID = primitive.NilObjectID }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := newEvent("Ann", leaderboard.IntScore(1))
			tt.mutate(&event)
			data, err := json.Marshal(event)
			require.NoError(t, err)

			_, err = ParseArchivedEntry(data)
			assert.Error(t, err)
		})
	}
}

func BenchmarkParseArchivedEntry(b *testing.B) {
	data, _ := json.Marshal(newEvent("benchmark_user", leaderboard.IntScore(99999)))

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, err := ParseArchivedEntry(data)
		if err != nil {
			b.Fatal(err)
		}
	}
}
