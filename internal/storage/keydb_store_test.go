package storage

import (
	"context"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func newTestKeyDBStore(t *testing.T) Store {
	t.Helper()
	addr := os.Getenv("TEST_KEYDB_ADDR")
	if addr == "" {
		mini, err := miniredis.Run()
		if err != nil {
			t.Fatalf("start miniredis: %v", err)
		}
		t.Cleanup(mini.Close)
		addr = mini.Addr()
	} else {
		// Use the externally provided KeyDB instance.
		t.Cleanup(func() {
			client := redis.NewClient(&redis.Options{Addr: addr})
			_ = client.FlushDB(context.Background()).Err()
			_ = client.Close()
		})
	}

	store, err := NewKeyDBStore(Config{Addr: addr})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	if ks, ok := store.(*keydbStore); ok {
		_ = ks.client.FlushDB(context.Background()).Err()
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestKeyDBStore(t *testing.T) {
	exerciseStore(t, newTestKeyDBStore(t))
}

func TestKeyDBStoreUnreachable(t *testing.T) {
	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	addr := mini.Addr()
	mini.Close()

	if _, err := NewKeyDBStore(Config{Addr: addr}); err == nil {
		t.Fatalf("expected connection error")
	}
}
