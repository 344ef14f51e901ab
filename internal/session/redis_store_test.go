package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestSaveAndLookupRefreshSession(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	expiresAt := time.Now().Add(time.Hour)
	if err := store.SaveRefreshSession(ctx, "hash-1", "owner-1", "usr_1", expiresAt); err != nil {
		t.Fatalf("save: %v", err)
	}

	ownerKey, userID, err := store.LookupRefreshSession(ctx, "hash-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if ownerKey != "owner-1" || userID != "usr_1" {
		t.Fatalf("lookup = (%q, %q)", ownerKey, userID)
	}
}

func TestLookupUnknownTokenFails(t *testing.T) {
	store, _ := newTestStore(t)

	if _, _, err := store.LookupRefreshSession(context.Background(), "missing"); err == nil {
		t.Fatal("lookup of unknown token succeeded")
	}
}

func TestRevokeRefreshSession(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveRefreshSession(ctx, "hash-1", "owner-1", "usr_1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.RevokeRefreshSession(ctx, "hash-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, _, err := store.LookupRefreshSession(ctx, "hash-1"); err == nil {
		t.Fatal("revoked token still resolves")
	}
}

func TestRefreshSessionExpiresWithTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveRefreshSession(ctx, "hash-1", "owner-1", "usr_1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("save: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, _, err := store.LookupRefreshSession(ctx, "hash-1"); err == nil {
		t.Fatal("expired token still resolves")
	}
}

func TestExpiredDeadlineFallsBackToDefaultTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	// An already-past expiry gets the default 30-day TTL instead of an
	// immediate expiration.
	if err := store.SaveRefreshSession(ctx, "hash-1", "owner-1", "usr_1", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}

	ttl := mr.TTL("refresh:hash-1")
	if ttl <= 0 || ttl > 30*24*time.Hour {
		t.Fatalf("ttl = %v", ttl)
	}
}
