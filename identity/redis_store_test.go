package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, "gg", ttl), mr, rdb
}

func TestRedisStoreSaveLoad(t *testing.T) {
	store, mr, _ := newRedisStoreTest(t, time.Hour)
	ctx := context.Background()

	if err := store.Save(ctx, "c-1", testIdentity()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("gg:identity:c-1") {
		t.Fatal("expected key gg:identity:c-1")
	}
	if ttl := mr.TTL("gg:identity:c-1"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}

	got, err := store.Load(ctx, "c-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ID != "u-1" || !got.HasRole("CONTRACTOR") {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr, _ := newRedisStoreTest(t, time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, "c-1", testIdentity()); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := store.Load(ctx, "c-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestRedisStoreDeleteIdempotent(t *testing.T) {
	store, _, _ := newRedisStoreTest(t, 0)
	ctx := context.Background()

	if err := store.Save(ctx, "c-1", testIdentity()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, "c-1"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.Delete(ctx, "c-1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := store.Load(ctx, "c-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStoreCorruptBlobDeleted(t *testing.T) {
	store, mr, rdb := newRedisStoreTest(t, 0)
	ctx := context.Background()

	if err := rdb.Set(ctx, "gg:identity:c-1", []byte("bad"), 0).Err(); err != nil {
		t.Fatalf("seed corrupt blob: %v", err)
	}
	if _, err := store.Load(ctx, "c-1"); !errors.Is(err, ErrCorruptProfile) {
		t.Fatalf("expected ErrCorruptProfile, got %v", err)
	}
	if mr.Exists("gg:identity:c-1") {
		t.Fatal("expected corrupt blob to be deleted")
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr, _ := newRedisStoreTest(t, 0)
	mr.Close()
	ctx := context.Background()

	if err := store.Save(ctx, "c-1", testIdentity()); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable on save, got %v", err)
	}
	if _, err := store.Load(ctx, "c-1"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable on load, got %v", err)
	}
	if _, err := store.Ping(ctx); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable on ping, got %v", err)
	}
}
