package memory

import (
	"context"
	"errors"
	"time"

	"github.com/coocood/freecache"

	"github.com/goodtune/listenstats/internal/storage"
)

// minSize is the smallest cache freecache will allocate.
const minSize = 512 * 1024

// Cache is an in-process storage.ResponseCache backed by freecache.
type Cache struct {
	cache *freecache.Cache
}

var _ storage.ResponseCache = (*Cache)(nil)

// New allocates a cache of sizeMB megabytes.
func New(sizeMB int) *Cache {
	size := sizeMB * 1024 * 1024
	if size < minSize {
		size = minSize
	}
	return &Cache{cache: freecache.NewCache(size)}
}

func (c *Cache) Name() string { return "memory" }

func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	val, err := c.cache.Get([]byte(key))
	if err != nil {
		return nil, storage.ErrNotFound
	}
	return val, nil
}

// Set stores value; ttl is rounded up to whole seconds and zero means no
// expiry. Entries larger than 1/1024 of the cache are skipped.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	seconds := 0
	if ttl > 0 {
		seconds = int((ttl + time.Second - 1) / time.Second)
	}
	err := c.cache.Set([]byte(key), value, seconds)
	if errors.Is(err, freecache.ErrLargeEntry) {
		return nil
	}
	return err
}

func (c *Cache) Purge(context.Context) error {
	c.cache.Clear()
	return nil
}

// Entries returns the number of cached responses.
func (c *Cache) Entries() int64 {
	return c.cache.EntryCount()
}

func (c *Cache) Close() error { return nil }
