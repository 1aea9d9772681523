package messenger

import (
	"context"
	"errors"
	"fmt"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/messaging"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

// FindOrStart locates the canonical thread between initiator and
// counterpart, creating it when absent, and returns the view key the
// initiator should navigate to. Threads are optionally kept distinct per
// project context via projectID. When a thread is newly created with an
// organization counterpart, the notification side channel is pinged without
// blocking or failing the creation.
func (s *Service) FindOrStart(ctx context.Context, initiator, counterpart participant.Ref, projectID string) (messaging.ViewKey, error) {
	if err := s.identity.Validate(); err != nil {
		return messaging.ViewKey{}, err
	}
	if initiator.Equal(counterpart) {
		return messaging.ViewKey{}, messaging.ErrSameParticipant
	}
	if !s.identity.Owns(initiator) {
		return messaging.ViewKey{}, ErrNotMessageOwner
	}

	a, b := participant.Normalize(initiator, counterpart)
	thread, err := s.repo.FindThread(ctx, a, b, projectID)
	created := false
	switch {
	case err == nil:
	case errors.Is(err, messaging.ErrThreadNotFound):
		meta := messaging.Metadata{ProjectID: projectID, InitiatedBy: initiator}
		thread, err = s.repo.CreateThread(ctx, a, b, meta, s.Now().UTC())
		if err != nil {
			return messaging.ViewKey{}, fmt.Errorf("messenger: create thread: %w", err)
		}
		created = true
	default:
		return messaging.ViewKey{}, fmt.Errorf("messenger: find thread: %w", err)
	}

	s.cache.Resolve(ctx, []participant.Ref{initiator, counterpart})
	s.mergeThread(thread)

	if created && s.Stats != nil {
		s.Stats.ThreadCreated()
	}
	if created && counterpart.IsOrg() && s.notifier != nil {
		notifyThread := thread
		s.spawn(func() {
			if err := s.notifier.ThreadCreated(context.WithoutCancel(ctx), counterpart, notifyThread); err != nil {
				s.logWarn("thread-created notification failed", "thread_id", notifyThread.ID, "org_id", counterpart.ID, "error", err)
			}
		})
	}

	return messaging.KeyFor(thread.ID, initiator), nil
}

// mergeThread folds one thread's projections into the current collection,
// replacing any stale views of the same thread.
func (s *Service) mergeThread(thread messaging.Thread) {
	views := messaging.DeriveViews([]messaging.Thread{thread}, s.identity.Acting(), s.cache.Get, s.Logger)
	s.commit(func(existing []messaging.ThreadView) []messaging.ThreadView {
		merged := removeThread(existing, thread.ID)
		merged = append(merged, views...)
		return sortViews(merged)
	})
}
