package changestream

import (
	"context"
	"fmt"

	"github.com/Olzhassss/flappy-bird/pkg/kv"

	"go.mongodb.org/mongo-driver/bson"
)

// TokenStore defines the interface for persisting and loading MongoDB resume tokens
type TokenStore interface {
	// Save persists the resume token
	Save(ctx context.Context, token bson.Raw) error

	// Load retrieves the last saved resume token. Returns nil if no token exists.
	Load(ctx context.Context) (bson.Raw, error)
}

// Checkpoint keeps the resume token under a single key of a kv.Store
type Checkpoint struct {
	store kv.Store
	key   string
}

// NewCheckpoint creates a TokenStore backed by store
func NewCheckpoint(store kv.Store, key string) *Checkpoint {
	return &Checkpoint{store: store, key: key}
}

func (c *Checkpoint) Save(ctx context.Context, token bson.Raw) error {
	if err := c.store.Set(ctx, c.key, token); err != nil {
		return fmt.Errorf("failed to save resume token: %w", err)
	}
	return nil
}

func (c *Checkpoint) Load(ctx context.Context) (bson.Raw, error) {
	data, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load resume token: %w", err)
	}
	if !ok || len(data) == 0 {
		return nil, nil
	}
	return bson.Raw(data), nil
}
