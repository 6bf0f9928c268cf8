package storage

import (
	"context"
	"errors"
	"time"

	"github.com/goodtune/listenstats/internal/history"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Archive stores deduplicated listening events.
type Archive interface {
	// SaveEvents stores events not already archived and returns how many
	// were new.
	SaveEvents(ctx context.Context, events []history.Event) (int, error)
	// Events returns every archived event ordered by timestamp.
	Events(ctx context.Context) ([]history.Event, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}

// ResponseCache stores encoded API responses.
type ResponseCache interface {
	// Get returns ErrNotFound on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Purge drops every cached response.
	Purge(ctx context.Context) error
	// Name identifies the backend in logs and metrics.
	Name() string
	Close() error
}

// NopCache is a ResponseCache that never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, error) { return nil, ErrNotFound }
func (NopCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}
func (NopCache) Purge(context.Context) error { return nil }
func (NopCache) Name() string                { return "none" }
func (NopCache) Close() error                { return nil }
