package writer

import "time"

// ArchivedEntry is a leaderboard entry as stored in the PostgreSQL archive
type ArchivedEntry struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Score        *int64    `db:"score"` // nil when the submitted score was NaN
	SubmittedAt  time.Time `db:"submitted_at"`
	CDCTimestamp time.Time `db:"cdc_timestamp"`
}

// Schema creates the archive table. Entries are immutable, so the id is the only key.
const Schema = `
CREATE TABLE IF NOT EXISTS leaderboard_archive (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	score         BIGINT,
	submitted_at  TIMESTAMPTZ NOT NULL,
	cdc_timestamp TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS leaderboard_archive_score_idx ON leaderboard_archive (score DESC NULLS LAST);
`

var archiveColumns = []string{"id", "name", "score", "submitted_at", "cdc_timestamp"}

func (e ArchivedEntry) values() []interface{} {
	return []interface{}{e.ID, e.Name, e.Score, e.SubmittedAt, e.CDCTimestamp}
}
