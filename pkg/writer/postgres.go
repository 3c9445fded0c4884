package writer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Olzhassss/flappy-bird/pkg/logger"
	"github.com/Olzhassss/flappy-bird/pkg/retry"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// copyThreshold is the batch size from which COPY is used instead of INSERT
const copyThreshold = 100

// PostgresWriter defines the interface for writing batches to PostgreSQL
type PostgresWriter interface {
	// WriteBatch archives a batch of entries. Entries already archived are skipped,
	// so a redelivered batch is harmless.
	WriteBatch(ctx context.Context, entries []ArchivedEntry) error

	// Close closes the database connection pool
	Close() error
}

// PGWriter implements PostgresWriter using pgxpool
type PGWriter struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// PostgresConfig holds database connection settings
type PostgresConfig struct {
	URI      string
	MinConns int32
	MaxConns int32
}

// NewPostgresWriter creates a new PGWriter instance
func NewPostgresWriter(ctx context.Context, cfg PostgresConfig, l *logger.Logger) (*PGWriter, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PGWriter{pool: pool, logger: l}, nil
}

// EnsureSchema creates the archive table if it does not exist yet
func (w *PGWriter) EnsureSchema(ctx context.Context) error {
	if _, err := w.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create archive schema: %w", err)
	}
	return nil
}

// Ping checks the connection to the database
func (w *PGWriter) Ping(ctx context.Context) error {
	return w.pool.Ping(ctx)
}

// WriteBatch writes the entries using the best available protocol
func (w *PGWriter) WriteBatch(ctx context.Context, entries []ArchivedEntry) error {
	if len(entries) == 0 {
		return nil
	}

	var err error
	if w.ShouldUseCopy(entries) {
		err = w.writeBatchCopy(ctx, entries)
	} else {
		err = w.writeBatchInsert(ctx, entries)
	}
	return classify(err)
}

// classify marks errors caused by the data itself as permanent.
// SQLSTATE class 22 is a data exception, class 23 an integrity violation.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")) {
		return retry.Permanent(err)
	}
	return err
}

// writeBatchInsert inserts entries one by one inside a transaction
func (w *PGWriter) writeBatchInsert(ctx context.Context, entries []ArchivedEntry) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const query = `
		INSERT INTO leaderboard_archive (id, name, score, submitted_at, cdc_timestamp)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	for _, e := range entries {
		tag, err := tx.Exec(ctx, query, e.values()...)
		if err != nil {
			return fmt.Errorf("insert %s failed: %w", e.ID, err)
		}
		if tag.RowsAffected() == 0 {
			w.logger.Debug("entry already archived", zap.String("id", e.ID))
		}
	}
	return tx.Commit(ctx)
}

// writeBatchCopy loads the batch through a temp table with COPY, then moves new rows over
func (w *PGWriter) writeBatchCopy(ctx context.Context, entries []ArchivedEntry) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "CREATE TEMP TABLE leaderboard_archive_temp (LIKE leaderboard_archive) ON COMMIT DROP")
	if err != nil {
		return fmt.Errorf("failed to create temp table: %w", err)
	}

	rows := make([][]interface{}, len(entries))
	for i, e := range entries {
		rows[i] = e.values()
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"leaderboard_archive_temp"},
		archiveColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy from failed: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO leaderboard_archive SELECT * FROM leaderboard_archive_temp
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("insert from temp table failed: %w", err)
	}
	w.logger.Debug("copy batch archived",
		zap.Int("batch_size", len(entries)),
		zap.Int64("inserted", tag.RowsAffected()))

	return tx.Commit(ctx)
}

// Close closes the pool
func (w *PGWriter) Close() error {
	w.pool.Close()
	return nil
}

// ShouldUseCopy reports whether a batch is large enough for the COPY protocol
func (w *PGWriter) ShouldUseCopy(entries []ArchivedEntry) bool {
	return len(entries) >= copyThreshold
}
