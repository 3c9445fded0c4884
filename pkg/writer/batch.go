package writer

import (
	"sync"
	"time"

	"github.com/Olzhassss/flappy-bird/pkg/consumer"
)

// Record pairs an archived entry with the Kafka message it came from
type Record struct {
	Entry   ArchivedEntry
	Message consumer.Message
}

// BatchBuffer defines the interface for buffering records before a flush
type BatchBuffer interface {
	// Add adds a record to the buffer. Returns true if buffer should be flushed.
	Add(record Record) bool

	// Flush returns all buffered records and clears the buffer
	Flush() []Record

	// Size returns the current number of buffered records
	Size() int

	// ShouldFlush checks if flush conditions are met based on time
	ShouldFlush(interval time.Duration) bool
}

// InMemoryBuffer implements BatchBuffer using a slice
type InMemoryBuffer struct {
	mu        sync.Mutex
	records   []Record
	capacity  int
	lastFlush time.Time
}

// NewInMemoryBuffer creates a new InMemoryBuffer instance
func NewInMemoryBuffer(capacity int) *InMemoryBuffer {
	return &InMemoryBuffer{
		records:   make([]Record, 0, capacity),
		capacity:  capacity,
		lastFlush: time.Now(),
	}
}

func (b *InMemoryBuffer) Add(record Record) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records = append(b.records, record)
	return len(b.records) >= b.capacity
}

func (b *InMemoryBuffer) Flush() []Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	batch := b.records
	b.records = make([]Record, 0, b.capacity)
	b.lastFlush = time.Now()
	return batch
}

func (b *InMemoryBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// ShouldFlush returns true if records are waiting and interval has passed since the last flush
func (b *InMemoryBuffer) ShouldFlush(interval time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.records) == 0 {
		return false
	}

	return time.Since(b.lastFlush) >= interval
}

// Entries extracts the archived entries of a batch in order
func Entries(records []Record) []ArchivedEntry {
	entries := make([]ArchivedEntry, len(records))
	for i, r := range records {
		entries[i] = r.Entry
	}
	return entries
}
