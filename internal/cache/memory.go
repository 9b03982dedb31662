package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type item struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Service. Expired entries are dropped lazily on
// read.
type Memory struct {
	mu    sync.RWMutex
	items map[string]item
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]item)}
}

func (c *Memory) Get(ctx context.Context, key string, dest any) error {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return ErrMiss
	}
	if time.Now().After(it.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return ErrMiss
	}
	return json.Unmarshal(it.value, dest)
}

func (c *Memory) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item{value: data, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *Memory) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}
