package directory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

// Store is the external lookup the cache batches against: the user and
// organization directories of the platform.
type Store interface {
	UsersByID(ctx context.Context, ids []string) ([]participant.Profile, error)
	OrgsByID(ctx context.Context, ids []string) ([]participant.Profile, error)
}

// Cache memoizes participant display profiles for one session. Entries are
// write-once per reference and live until the session ends; there is no
// invalidation.
type Cache struct {
	store  Store
	logger *slog.Logger

	mu       sync.Mutex
	entries  map[participant.Ref]participant.Profile
	inflight map[participant.Ref]struct{}
}

// NewCache builds an empty session cache over the directory store.
func NewCache(store Store, logger *slog.Logger) *Cache {
	return &Cache{
		store:    store,
		logger:   logger,
		entries:  make(map[participant.Ref]participant.Profile),
		inflight: make(map[participant.Ref]struct{}),
	}
}

// Seed writes locally known profiles (the session user, managed orgs)
// without a round trip. First write wins.
func (c *Cache) Seed(profiles ...participant.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, profile := range profiles {
		if profile.Ref.IsZero() {
			continue
		}
		if _, ok := c.entries[profile.Ref]; ok {
			continue
		}
		c.entries[profile.Ref] = profile
	}
}

// Get returns the cached profile for a reference, if resolved.
func (c *Cache) Get(ref participant.Ref) (participant.Profile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	profile, ok := c.entries[ref]
	return profile, ok
}

// Resolve fetches every not-yet-cached reference, one batched lookup per
// kind. The cached/in-flight check happens before any store call, so
// overlapping Resolve calls never duplicate lookups for the same reference.
// A failed batch leaves its references unresolved; consumers degrade at
// display time instead of failing the operation.
func (c *Cache) Resolve(ctx context.Context, refs []participant.Ref) {
	userIDs, orgIDs := c.claimMissing(refs)
	if len(userIDs) == 0 && len(orgIDs) == 0 {
		return
	}
	defer c.releaseClaims(userIDs, orgIDs)

	if len(userIDs) > 0 {
		profiles, err := c.store.UsersByID(ctx, userIDs)
		if err != nil {
			c.logLookupFailure("user", len(userIDs), err)
		} else {
			c.storeProfiles(profiles)
		}
	}
	if len(orgIDs) > 0 {
		profiles, err := c.store.OrgsByID(ctx, orgIDs)
		if err != nil {
			c.logLookupFailure("org", len(orgIDs), err)
		} else {
			c.storeProfiles(profiles)
		}
	}
}

// claimMissing partitions the requested refs by kind, skipping anything
// already cached or currently being fetched, and marks the rest in flight.
func (c *Cache) claimMissing(refs []participant.Ref) (userIDs, orgIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[participant.Ref]struct{}, len(refs))
	for _, ref := range refs {
		if ref.IsZero() {
			continue
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		if _, ok := c.entries[ref]; ok {
			continue
		}
		if _, busy := c.inflight[ref]; busy {
			continue
		}
		c.inflight[ref] = struct{}{}
		switch ref.Kind {
		case participant.KindUser:
			userIDs = append(userIDs, ref.ID)
		case participant.KindOrg:
			orgIDs = append(orgIDs, ref.ID)
		}
	}
	return userIDs, orgIDs
}

func (c *Cache) storeProfiles(profiles []participant.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, profile := range profiles {
		if profile.Ref.IsZero() {
			continue
		}
		if _, ok := c.entries[profile.Ref]; ok {
			continue
		}
		c.entries[profile.Ref] = profile
	}
}

func (c *Cache) releaseClaims(userIDs, orgIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		delete(c.inflight, participant.UserRef(id))
	}
	for _, id := range orgIDs {
		delete(c.inflight, participant.OrgRef(id))
	}
}

func (c *Cache) logLookupFailure(kind string, count int, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn("participant lookup failed", "kind", kind, "count", count, "error", err)
}
