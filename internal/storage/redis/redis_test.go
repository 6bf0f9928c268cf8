package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/goodtune/listenstats/internal/config"
	"github.com/goodtune/listenstats/internal/storage"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	// miniredis.Addr() returns "host:port", so Port stays zero
	cfg := config.RedisConfig{
		Host:         mr.Addr(),
		PoolSize:     10,
		MinIdleConns: 1,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	}

	cache, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open Redis cache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })

	return cache, mr
}

func TestCache_SetGet(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "report:v1:y=2023", []byte(`{"ok":true}`), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := cache.Get(ctx, "report:v1:y=2023")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"ok":true}` {
		t.Errorf("Expected cached body, got %q", got)
	}

	if !mr.Exists(keyPrefix + "report:v1:y=2023") {
		t.Error("Expected key to be stored under the response prefix")
	}
	if ttl := mr.TTL(keyPrefix + "report:v1:y=2023"); ttl != time.Minute {
		t.Errorf("Expected TTL of 1m, got %v", ttl)
	}
}

func TestCache_Miss(t *testing.T) {
	cache, _ := setupTestCache(t)

	_, err := cache.Get(context.Background(), "absent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCache_Expiry(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "short", []byte("x"), time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	mr.FastForward(2 * time.Second)

	if _, err := cache.Get(ctx, "short"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected expired entry to be gone, got %v", err)
	}
}

func TestCache_Purge(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if err := cache.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if err := mr.Set("unrelated", "keep"); err != nil {
		t.Fatalf("miniredis Set failed: %v", err)
	}

	if err := cache.Purge(ctx); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}

	for _, k := range []string{"a", "b", "c"} {
		if _, err := cache.Get(ctx, k); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected %q to be purged, got %v", k, err)
		}
	}
	if !mr.Exists("unrelated") {
		t.Error("Purge removed a key outside the response prefix")
	}
}

func TestOpen_ConnectionFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Open(config.RedisConfig{Host: addr, DialTimeout: "200ms", ReadTimeout: "200ms", WriteTimeout: "200ms"})
	if err == nil {
		t.Fatal("Expected error connecting to a closed server")
	}
}
