package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisTokenRepository(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	repo := NewRedisTokenRepository(client, "")

	if _, err := repo.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load on empty store: err = %v, want ErrNotFound", err)
	}
	if err := repo.Save(ctx, "abc.def.ghi"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if got, err := mr.Get("eventhub:client:" + DefaultKey); err != nil || got != "abc.def.ghi" {
		t.Fatalf("stored value = %q, %v", got, err)
	}
	if ttl := mr.TTL("eventhub:client:" + DefaultKey); ttl != 0 {
		t.Fatalf("token TTL = %v, want none", ttl)
	}

	if err := repo.Save(ctx, "second"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if got, err := repo.Load(ctx); err != nil || got != "second" {
		t.Fatalf("Load() = %q, %v; want second", got, err)
	}

	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := repo.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load after Clear: err = %v, want ErrNotFound", err)
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear on empty store failed: %v", err)
	}
}

func TestRedisTokenRepositoryKeys(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	a := NewRedisTokenRepository(client, "a")
	b := NewRedisTokenRepository(client, "b")

	if err := a.Save(ctx, "token-a"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := b.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load under another key: err = %v, want ErrNotFound", err)
	}
	if !mr.Exists("eventhub:client:a") {
		t.Fatal("token not stored under its prefixed key")
	}
}

func TestRedisTokenRepositoryErrors(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	repo := NewRedisTokenRepository(client, "")

	if err := repo.Save(ctx, ""); err == nil {
		t.Fatal("Save with empty token succeeded")
	}

	if err := mr.Set("eventhub:client:"+DefaultKey, ""); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := repo.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load of blank value: err = %v, want ErrNotFound", err)
	}

	mr.Close()
	if _, err := repo.Load(ctx); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("Load with server down: err = %v, want a connection error", err)
	}
}
