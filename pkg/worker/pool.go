package worker

import (
	"context"
	"sync"
	"time"

	"github.com/Olzhassss/flappy-bird/pkg/consumer"
	"github.com/Olzhassss/flappy-bird/pkg/logger"
	"github.com/Olzhassss/flappy-bird/pkg/metrics"
	"github.com/Olzhassss/flappy-bird/pkg/retry"
	"github.com/Olzhassss/flappy-bird/pkg/writer"

	"go.uber.org/zap"
)

// Job represents a unit of work for a worker
type Job struct {
	Entry   writer.ArchivedEntry
	Message consumer.Message
}

// Config sizes the pool and its batches
type Config struct {
	Workers       int
	BatchSize     int
	FlushInterval time.Duration
	Retry         retry.RetryOptions
}

// WorkerPool manages a collection of batching workers
type WorkerPool struct {
	logger    *logger.Logger
	writer    writer.PostgresWriter
	consumer  consumer.Consumer
	cfg       Config
	inputChan chan Job
	wg        sync.WaitGroup
	cancel    context.CancelFunc
}

// NewWorkerPool creates a new WorkerPool instance
func NewWorkerPool(l *logger.Logger, w writer.PostgresWriter, c consumer.Consumer, cfg Config) *WorkerPool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}
	return &WorkerPool{
		logger:    l,
		writer:    w,
		consumer:  c,
		cfg:       cfg,
		inputChan: make(chan Job, cfg.Workers*2), // Buffered for smooth handoff
	}
}

// Start initializes the worker goroutines
func (p *WorkerPool) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.runWorker(workerCtx, i)
	}
}

// Submit sends a job to the pool for processing
func (p *WorkerPool) Submit(ctx context.Context, job Job) error {
	select {
	case p.inputChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *WorkerPool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()

	p.logger.Debug("worker started", zap.Int("worker_id", id))

	buffer := writer.NewInMemoryBuffer(p.cfg.BatchSize)
	ticker := time.NewTicker(p.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case job, ok := <-p.inputChan:
			if !ok {
				p.flush(ctx, buffer)
				return
			}

			metrics.SyncerMessagesConsumedTotal.Inc()
			if buffer.Add(writer.Record{Entry: job.Entry, Message: job.Message}) {
				p.flush(ctx, buffer)
			}

		case <-ticker.C:
			if buffer.ShouldFlush(p.cfg.FlushInterval) {
				p.flush(ctx, buffer)
			}

		case <-ctx.Done():
			p.flush(context.Background(), buffer) // Final flush on shutdown
			return
		}
	}
}

func (p *WorkerPool) flush(ctx context.Context, buffer *writer.InMemoryBuffer) {
	records := buffer.Flush()
	if len(records) == 0 {
		return
	}
	entries := writer.Entries(records)

	// 1. Write to PostgreSQL
	start := time.Now()
	err := retry.Do(ctx, func() error {
		err := p.writer.WriteBatch(ctx, entries)
		if err != nil {
			metrics.SyncerWriteErrorsTotal.Inc()
			p.logger.Warn("batch write failed", zap.Int("batch_size", len(entries)), zap.Error(err))
		}
		return err
	}, p.cfg.Retry)
	if retry.IsPermanent(err) && len(records) > 1 {
		p.logger.Warn("batch holds a bad entry, writing entries one by one", zap.Error(err))
		p.writeEach(ctx, records)
		return
	}
	if err != nil && !retry.IsPermanent(err) {
		// Offsets stay uncommitted so the batch is redelivered
		p.logger.Error("giving up on batch", err, zap.Int("batch_size", len(entries)))
		return
	}
	if err != nil {
		p.logger.Warn("dropping entry the archive refuses", zap.String("id", entries[0].ID), zap.Error(err))
	} else {
		metrics.SyncerInsertLatency.Observe(time.Since(start).Seconds())
		metrics.SyncerBatchWritesTotal.Inc()
	}

	// 2. Commit offsets only after the batch is archived
	p.commit(ctx, records)
}

// writeEach archives records individually, dropping the ones refused for their content
func (p *WorkerPool) writeEach(ctx context.Context, records []writer.Record) {
	for i, r := range records {
		err := p.writer.WriteBatch(ctx, []writer.ArchivedEntry{r.Entry})
		if err != nil && !retry.IsPermanent(err) {
			metrics.SyncerWriteErrorsTotal.Inc()
			p.logger.Error("giving up on batch", err, zap.Int("remaining", len(records)-i))
			return
		}
		if err != nil {
			metrics.SyncerWriteErrorsTotal.Inc()
			p.logger.Warn("dropping entry the archive refuses", zap.String("id", r.Entry.ID), zap.Error(err))
		}
		p.commit(ctx, records[i:i+1])
	}
	metrics.SyncerBatchWritesTotal.Inc()
}

func (p *WorkerPool) commit(ctx context.Context, records []writer.Record) {
	for _, r := range records {
		if err := p.consumer.Commit(ctx, r.Message); err != nil {
			p.logger.Error("failed to commit offset", err,
				zap.Int("partition", r.Message.Partition),
				zap.Int64("offset", r.Message.Offset))
		}
	}
}

// Shutdown stops accepting jobs and waits for workers to flush
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	close(p.inputChan)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if p.cancel != nil {
			p.cancel()
		}
		return nil
	case <-ctx.Done():
		if p.cancel != nil {
			p.cancel()
		}
		return ctx.Err()
	}
}
