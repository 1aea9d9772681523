package messenger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/app/directory"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/app/policies"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/app/session"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/messaging"
)

// Hub hands out one messenger per signed-in session. Each service owns a
// session-scoped participant cache, so profile data never leaks across
// accounts and ends with the session.
type Hub struct {
	repo      messaging.Repository
	directory directory.Store
	notifier  policies.Notifier
	logger    *slog.Logger
	stats     Stats

	// now is a test seam.
	now func() time.Time

	mu       sync.Mutex
	services map[string]*hubEntry
}

type hubEntry struct {
	svc      *Service
	lastSeen time.Time
}

// WithStats attaches lifecycle counters to every messenger the hub builds.
func (h *Hub) WithStats(stats Stats) *Hub {
	h.stats = stats
	return h
}

func NewHub(repo messaging.Repository, store directory.Store, notifier policies.Notifier, logger *slog.Logger) *Hub {
	return &Hub{
		repo:      repo,
		directory: store,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
		services:  make(map[string]*hubEntry),
	}
}

// Acquire returns the messenger bound to the session token, building and
// hydrating it on first use.
func (h *Hub) Acquire(ctx context.Context, token string, identity session.Identity) (*Service, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	if entry, ok := h.services[token]; ok {
		entry.lastSeen = h.now()
		h.mu.Unlock()
		return entry.svc, nil
	}
	cache := directory.NewCache(h.directory, h.logger)
	svc := NewService(h.repo, cache, identity, h.notifier, h.logger)
	svc.Stats = h.stats
	h.services[token] = &hubEntry{svc: svc, lastSeen: h.now()}
	h.mu.Unlock()

	if err := svc.Refresh(ctx); err != nil {
		h.Drop(token)
		return nil, err
	}
	return svc, nil
}

// Drop discards the session's messenger and cache, typically on logout.
func (h *Hub) Drop(token string) {
	h.mu.Lock()
	entry, ok := h.services[token]
	delete(h.services, token)
	h.mu.Unlock()
	if ok {
		entry.svc.Wait()
	}
}

// EvictIdle drops every messenger not acquired within maxIdle and reports
// how many were removed. Sessions that expire without logging out never see
// another Drop, so the sweep is what bounds the map.
func (h *Hub) EvictIdle(maxIdle time.Duration) int {
	cutoff := h.now().Add(-maxIdle)
	h.mu.Lock()
	var stale []*Service
	for token, entry := range h.services {
		if entry.lastSeen.Before(cutoff) {
			stale = append(stale, entry.svc)
			delete(h.services, token)
		}
	}
	h.mu.Unlock()
	for _, svc := range stale {
		svc.Wait()
	}
	return len(stale)
}

// Sweep runs EvictIdle on the interval until ctx ends.
func (h *Hub) Sweep(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := h.EvictIdle(maxIdle); n > 0 && h.logger != nil {
				h.logger.Debug("evicted idle messenger sessions", "count", n)
			}
		}
	}
}
