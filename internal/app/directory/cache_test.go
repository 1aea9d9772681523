package directory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

type countingStore struct {
	mu        sync.Mutex
	userCalls int
	orgCalls  int
	userIDs   [][]string
	failUsers bool
}

func (s *countingStore) UsersByID(_ context.Context, ids []string) ([]participant.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userCalls++
	s.userIDs = append(s.userIDs, append([]string(nil), ids...))
	if s.failUsers {
		return nil, errors.New("directory down")
	}
	out := make([]participant.Profile, 0, len(ids))
	for _, id := range ids {
		out = append(out, participant.UserProfile(id, "User "+id, ""))
	}
	return out, nil
}

func (s *countingStore) OrgsByID(_ context.Context, ids []string) ([]participant.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgCalls++
	out := make([]participant.Profile, 0, len(ids))
	for _, id := range ids {
		out = append(out, participant.OrgProfile(id, "Org "+id, ""))
	}
	return out, nil
}

func TestResolvePartitionsByKind(t *testing.T) {
	store := &countingStore{}
	cache := NewCache(store, nil)

	cache.Resolve(context.Background(), []participant.Ref{
		participant.UserRef("u1"),
		participant.OrgRef("o1"),
		participant.UserRef("u2"),
	})

	if store.userCalls != 1 || store.orgCalls != 1 {
		t.Fatalf("expected one batched call per kind, got users=%d orgs=%d", store.userCalls, store.orgCalls)
	}
	if _, ok := cache.Get(participant.UserRef("u1")); !ok {
		t.Fatal("u1 should be cached")
	}
	if _, ok := cache.Get(participant.OrgRef("o1")); !ok {
		t.Fatal("o1 should be cached")
	}
}

func TestResolveSkipsCachedAndDuplicateRefs(t *testing.T) {
	store := &countingStore{}
	cache := NewCache(store, nil)

	cache.Resolve(context.Background(), []participant.Ref{participant.UserRef("u1")})
	cache.Resolve(context.Background(), []participant.Ref{
		participant.UserRef("u1"),
		participant.UserRef("u1"),
		participant.UserRef("u2"),
	})

	if store.userCalls != 2 {
		t.Fatalf("expected two lookups, got %d", store.userCalls)
	}
	if got := store.userIDs[1]; len(got) != 1 || got[0] != "u2" {
		t.Fatalf("second lookup must only carry the uncached id, got %v", got)
	}
}

func TestSeedAvoidsRoundTrips(t *testing.T) {
	store := &countingStore{}
	cache := NewCache(store, nil)
	cache.Seed(participant.OrgProfile("o1", "Acme Development", "https://img/o1.png"))

	cache.Resolve(context.Background(), []participant.Ref{participant.OrgRef("o1")})
	if store.orgCalls != 0 {
		t.Fatalf("seeded refs must not hit the store, got %d calls", store.orgCalls)
	}
	profile, ok := cache.Get(participant.OrgRef("o1"))
	if !ok || profile.Name != "Acme Development" {
		t.Fatalf("unexpected seeded profile: %+v ok=%v", profile, ok)
	}
}

func TestSeedIsWriteOnce(t *testing.T) {
	cache := NewCache(&countingStore{}, nil)
	cache.Seed(participant.UserProfile("u1", "First", ""))
	cache.Seed(participant.UserProfile("u1", "Second", ""))
	profile, _ := cache.Get(participant.UserRef("u1"))
	if profile.Name != "First" {
		t.Fatalf("first resolution must win, got %q", profile.Name)
	}
}

func TestResolveFailureLeavesRefsUnresolved(t *testing.T) {
	store := &countingStore{failUsers: true}
	cache := NewCache(store, nil)

	cache.Resolve(context.Background(), []participant.Ref{participant.UserRef("u1")})
	if _, ok := cache.Get(participant.UserRef("u1")); ok {
		t.Fatal("failed lookup must leave the ref unresolved")
	}

	// a later resolve can still try again
	store.mu.Lock()
	store.failUsers = false
	store.mu.Unlock()
	cache.Resolve(context.Background(), []participant.Ref{participant.UserRef("u1")})
	if _, ok := cache.Get(participant.UserRef("u1")); !ok {
		t.Fatal("ref should resolve once the store recovers")
	}
}
