package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeInvalid  = "invalid"
)

var (
	// API Metrics
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaderboard_submissions_total",
		Help: "Score submissions by outcome",
	}, []string{"outcome"})
	NaNScoresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leaderboard_nan_scores_total",
		Help: "Accepted submissions whose score did not parse as an integer",
	})
	RetrievalErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leaderboard_retrieval_errors_total",
		Help: "The total number of failed leaderboard queries",
	})
	RetrievalLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "leaderboard_retrieval_latency_seconds",
		Help:    "Latency of top-N leaderboard queries",
		Buckets: prometheus.DefBuckets,
	})

	// Watcher Metrics
	WatcherEventsCapturedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leaderboard_watcher_events_total",
		Help: "The total number of entries captured from the MongoDB change stream",
	})
	WatcherPublishErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leaderboard_watcher_publish_errors_total",
		Help: "The total number of errors occurred while publishing to Kafka",
	})
	WatcherTokenSavesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leaderboard_watcher_token_saves_total",
		Help: "The total number of resume token saves to storage",
	})

	// Syncer Metrics
	SyncerMessagesConsumedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leaderboard_syncer_messages_consumed_total",
		Help: "The total number of messages consumed from Kafka",
	})
	SyncerBatchWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leaderboard_syncer_batch_writes_total",
		Help: "The total number of batch write operations to PostgreSQL",
	})
	SyncerWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leaderboard_syncer_write_errors_total",
		Help: "The total number of errors occurred during PostgreSQL writes",
	})
	SyncerInsertLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "leaderboard_syncer_insert_latency_seconds",
		Help:    "Latency of PostgreSQL archive inserts",
		Buckets: prometheus.DefBuckets,
	})
)
