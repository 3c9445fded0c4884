package scorecache

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/Olzhassss/flappy-bird/pkg/kv"
)

const (
	// Key is the storage key of the cached value
	Key = "highest_score"

	// DefaultValue is used when nothing has been persisted yet
	DefaultValue = "0"
)

// Cache is the player's best local score: a single observable string value
// that is written to the backing store on every change.
type Cache struct {
	mu          sync.Mutex
	store       kv.Store
	value       string
	nextID      int
	subscribers map[int]func(string)
}

// Load reads the persisted value, falling back to DefaultValue
func Load(ctx context.Context, store kv.Store) (*Cache, error) {
	c := &Cache{
		store:       store,
		value:       DefaultValue,
		subscribers: make(map[int]func(string)),
	}

	data, ok, err := store.Get(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", Key, err)
	}
	if ok {
		c.value = string(data)
	}
	return c, nil
}

// Get returns the current value
func (c *Cache) Get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set replaces the value, notifies subscribers and persists it.
// The in-memory value changes even when persisting fails.
func (c *Cache) Set(ctx context.Context, value string) error {
	c.mu.Lock()
	c.value = value
	subs := c.snapshot()
	c.mu.Unlock()

	for _, fn := range subs {
		fn(value)
	}

	if err := c.store.Set(ctx, Key, []byte(value)); err != nil {
		return fmt.Errorf("failed to persist %s: %w", Key, err)
	}
	return nil
}

// Update sets the value to fn(current)
func (c *Cache) Update(ctx context.Context, fn func(string) string) error {
	return c.Set(ctx, fn(c.Get()))
}

// Subscribe registers fn and calls it right away with the current value.
// The returned function removes the subscription.
func (c *Cache) Subscribe(fn func(string)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subscribers[id] = fn
	value := c.value
	c.mu.Unlock()

	fn(value)

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// RecordIfHigher stores score when it beats the cached value. A cached value
// that is not an integer counts as zero.
func (c *Cache) RecordIfHigher(ctx context.Context, score int64) (bool, error) {
	best, err := strconv.ParseInt(c.Get(), 10, 64)
	if err != nil {
		best = 0
	}
	if score <= best {
		return false, nil
	}
	if err := c.Set(ctx, strconv.FormatInt(score, 10)); err != nil {
		return true, err
	}
	return true, nil
}

func (c *Cache) snapshot() []func(string) {
	subs := make([]func(string), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	return subs
}
