package parser

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/Olzhassss/flappy-bird/pkg/changestream"
	"github.com/Olzhassss/flappy-bird/pkg/writer"
)

// ParseArchivedEntry deserializes a Kafka message value into an ArchivedEntry
func ParseArchivedEntry(data []byte) (writer.ArchivedEntry, error) {
	var event changestream.EntryEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return writer.ArchivedEntry{}, fmt.Errorf("failed to unmarshal entry event: %w", err)
	}

	// Validate required fields
	if event.ID == "" {
		return writer.ArchivedEntry{}, errors.New("missing event ID")
	}
	if event.OperationType != "insert" {
		return writer.ArchivedEntry{}, fmt.Errorf("unexpected operation type %q", event.OperationType)
	}
	if event.Entry.ID.IsZero() {
		return writer.ArchivedEntry{}, errors.New("missing entry ID")
	}

	entry := writer.ArchivedEntry{
		ID:           event.Entry.ID.Hex(),
		Name:         event.Entry.Name,
		SubmittedAt:  event.Entry.ID.Timestamp().UTC(),
		CDCTimestamp: time.Unix(int64(event.ClusterTime.T), 0).UTC(),
	}
	if v, ok := event.Entry.Score.Int64(); ok {
		entry.Score = &v
	}

	return entry, nil
}
