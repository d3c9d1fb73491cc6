package session

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/sirahlabs/smartchat/internal/chat"
	"github.com/sirahlabs/smartchat/internal/knowledge"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "Sirah Dental Care", nil), mr
}

func TestRedisStoreSaveAndLoad(t *testing.T) {
	store, mr := newTestRedisStore(t)
	now := time.Now().UTC().Truncate(time.Millisecond)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Save(ctx, sampleSession(now)); err != nil {
		t.Fatalf("save: %v", err)
	}
	key := "sirah_smartchat_history_sirah_dental_care:abc"
	if !mr.Exists(key) {
		t.Fatalf("expected key %s", key)
	}
	if ttl := mr.TTL(key); ttl != MaxAge {
		t.Fatalf("expected %s ttl, got %s", MaxAge, ttl)
	}

	s, err := store.Load(ctx, "abc")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.State != chat.StateCollectingLead || len(s.Messages) != 2 {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestRedisStoreMissingSession(t *testing.T) {
	store, _ := newTestRedisStore(t)
	if _, err := store.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStoreDropsStaleTranscript(t *testing.T) {
	store, mr := newTestRedisStore(t)
	written := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return written.Add(30 * time.Hour) }
	ctx := context.Background()

	if err := store.Save(ctx, sampleSession(written)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Load(ctx, "abc"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if mr.Exists("sirah_smartchat_history_sirah_dental_care:abc") {
		t.Fatalf("stale transcript should be deleted")
	}
}

func TestRedisStoreDelete(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()
	s := chat.NewSession("abc", knowledge.English)
	s.LastUpdated = time.Now()
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, "abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected no keys, got %v", mr.Keys())
	}
}

func TestMemoryStoreExpires(t *testing.T) {
	store := NewMemoryStore()
	written := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()
	if err := store.Save(ctx, sampleSession(written)); err != nil {
		t.Fatalf("save: %v", err)
	}

	store.now = func() time.Time { return written.Add(time.Hour) }
	if _, err := store.Load(ctx, "abc"); err != nil {
		t.Fatalf("load: %v", err)
	}

	store.now = func() time.Time { return written.Add(25 * time.Hour) }
	if _, err := store.Load(ctx, "abc"); !Discarded(err) {
		t.Fatalf("expected discard, got %v", err)
	}
	if _, err := store.Load(ctx, "abc"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after discard, got %v", err)
	}
}
