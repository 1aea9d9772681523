package messenger

import (
	"context"
	"testing"
	"time"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/app/session"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/infra/storage/memory"
)

func newHubFixture(t *testing.T) (*Hub, *time.Time) {
	t.Helper()
	store := memory.DirectoryStore{Accounts: memory.NewAccountRepository(), Orgs: memory.NewOrgRepository()}
	hub := NewHub(memory.NewThreadRepository(), store, nil, nil)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	clock := &now
	hub.now = func() time.Time { return *clock }
	return hub, clock
}

func hubIdentity() session.Identity {
	return session.Identity{User: participant.UserProfile("user-1", "Noah Fields", "")}
}

func TestHubReusesServicePerToken(t *testing.T) {
	hub, _ := newHubFixture(t)
	ctx := context.Background()

	first, err := hub.Acquire(ctx, "token-1", hubIdentity())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	again, err := hub.Acquire(ctx, "token-1", hubIdentity())
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if again != first {
		t.Fatal("same token must map to the same messenger")
	}

	hub.Drop("token-1")
	rebuilt, err := hub.Acquire(ctx, "token-1", hubIdentity())
	if err != nil {
		t.Fatalf("acquire after drop: %v", err)
	}
	if rebuilt == first {
		t.Fatal("dropped messenger must be rebuilt")
	}
}

func TestHubEvictsIdleSessions(t *testing.T) {
	// Sessions that expire without a logout never call Drop; the idle sweep
	// is what keeps them from pinning a service and cache forever.
	hub, clock := newHubFixture(t)
	ctx := context.Background()

	stale, err := hub.Acquire(ctx, "token-stale", hubIdentity())
	if err != nil {
		t.Fatalf("acquire stale: %v", err)
	}
	*clock = clock.Add(30 * time.Minute)
	live, err := hub.Acquire(ctx, "token-live", hubIdentity())
	if err != nil {
		t.Fatalf("acquire live: %v", err)
	}
	*clock = clock.Add(40 * time.Minute)

	if n := hub.EvictIdle(time.Hour); n != 1 {
		t.Fatalf("expected one eviction, got %d", n)
	}

	again, err := hub.Acquire(ctx, "token-live", hubIdentity())
	if err != nil {
		t.Fatalf("reacquire live: %v", err)
	}
	if again != live {
		t.Fatal("session within the idle bound must survive the sweep")
	}
	rebuilt, err := hub.Acquire(ctx, "token-stale", hubIdentity())
	if err != nil {
		t.Fatalf("reacquire stale: %v", err)
	}
	if rebuilt == stale {
		t.Fatal("evicted session must get a fresh messenger")
	}
}

func TestHubAcquireResetsIdleClock(t *testing.T) {
	hub, clock := newHubFixture(t)
	ctx := context.Background()

	if _, err := hub.Acquire(ctx, "token-1", hubIdentity()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	*clock = clock.Add(40 * time.Minute)
	if _, err := hub.Acquire(ctx, "token-1", hubIdentity()); err != nil {
		t.Fatalf("touch: %v", err)
	}
	*clock = clock.Add(40 * time.Minute)

	if n := hub.EvictIdle(time.Hour); n != 0 {
		t.Fatalf("recently acquired session must not be evicted, got %d", n)
	}
}
