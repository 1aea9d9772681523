package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/messaging"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

func TestFindThreadIsOrderInsensitive(t *testing.T) {
	repo := NewThreadRepository()
	ctx := context.Background()
	user := participant.UserRef("u1")
	org := participant.OrgRef("o1")
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	a, b := participant.Normalize(user, org)
	created, err := repo.CreateThread(ctx, a, b, messaging.Metadata{}, now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := repo.FindThread(ctx, org, user, "")
	if err != nil {
		t.Fatalf("find reversed pair: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("expected thread %s, got %s", created.ID, found.ID)
	}
	if _, err := repo.FindThread(ctx, user, participant.OrgRef("other"), ""); !errors.Is(err, messaging.ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
}

func TestFindThreadProjectScope(t *testing.T) {
	repo := NewThreadRepository()
	ctx := context.Background()
	user := participant.UserRef("u1")
	org := participant.OrgRef("o1")
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	a, b := participant.Normalize(user, org)
	scoped, err := repo.CreateThread(ctx, a, b, messaging.Metadata{ProjectID: "p1"}, now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := repo.FindThread(ctx, user, org, "p1")
	if err != nil {
		t.Fatalf("find scoped: %v", err)
	}
	if found.ID != scoped.ID {
		t.Fatalf("expected scoped thread %s, got %s", scoped.ID, found.ID)
	}
	if found.Metadata.ProjectID != "p1" {
		t.Fatalf("metadata lost: %+v", found.Metadata)
	}
}

func TestInsertMessageAdvancesActivity(t *testing.T) {
	repo := NewThreadRepository()
	ctx := context.Background()
	user := participant.UserRef("u1")
	org := participant.OrgRef("o1")
	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	a, b := participant.Normalize(user, org)
	thread, err := repo.CreateThread(ctx, a, b, messaging.Metadata{}, created)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	at := created.Add(time.Hour)
	msg, err := repo.InsertMessage(ctx, thread.ID, user, "hello", at)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if msg.ID == "" {
		t.Fatal("stored message must carry a server id")
	}
	if msg.Status != messaging.StatusConfirmed {
		t.Fatalf("stored message must be confirmed, got %s", msg.Status)
	}

	loaded, err := repo.FindThread(ctx, user, org, "")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !loaded.LastMessageAt.Equal(at) {
		t.Fatalf("activity not advanced: %v", loaded.LastMessageAt)
	}
	if len(loaded.Messages) != 1 || loaded.Messages[0].Content != "hello" {
		t.Fatalf("unexpected messages: %+v", loaded.Messages)
	}

	if _, err := repo.InsertMessage(ctx, "missing", user, "x", at); !errors.Is(err, messaging.ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
}

func TestMarkReadStampsOnlySenderMessages(t *testing.T) {
	repo := NewThreadRepository()
	ctx := context.Background()
	user := participant.UserRef("u1")
	org := participant.OrgRef("o1")
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	a, b := participant.Normalize(user, org)
	thread, err := repo.CreateThread(ctx, a, b, messaging.Metadata{}, now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i, sender := range []participant.Ref{org, org, user} {
		if _, err := repo.InsertMessage(ctx, thread.ID, sender, "m", now.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	stamped, err := repo.MarkRead(ctx, thread.ID, org, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if stamped != 2 {
		t.Fatalf("expected 2 stamped, got %d", stamped)
	}

	// a second pass finds nothing unread
	stamped, err = repo.MarkRead(ctx, thread.ID, org, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("mark read again: %v", err)
	}
	if stamped != 0 {
		t.Fatalf("expected 0 stamped on repeat, got %d", stamped)
	}

	loaded, _ := repo.FindThread(ctx, user, org, "")
	for _, msg := range loaded.Messages {
		if msg.Sender.Equal(org) && msg.ReadAt == nil {
			t.Fatalf("org message left unread: %+v", msg)
		}
		if msg.Sender.Equal(user) && msg.ReadAt != nil {
			t.Fatalf("own message must stay untouched: %+v", msg)
		}
	}
}

func TestDeleteThreadCascades(t *testing.T) {
	repo := NewThreadRepository()
	ctx := context.Background()
	user := participant.UserRef("u1")
	org := participant.OrgRef("o1")
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	a, b := participant.Normalize(user, org)
	thread, err := repo.CreateThread(ctx, a, b, messaging.Metadata{}, now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	msg, err := repo.InsertMessage(ctx, thread.ID, user, "bye", now)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := repo.DeleteThread(ctx, thread.ID); err != nil {
		t.Fatalf("delete thread: %v", err)
	}
	if err := repo.DeleteMessage(ctx, thread.ID, msg.ID); !errors.Is(err, messaging.ErrThreadNotFound) {
		t.Fatalf("expected cascade, got %v", err)
	}
	threads, err := repo.ThreadsFor(ctx, []participant.Ref{user})
	if err != nil {
		t.Fatalf("threads for: %v", err)
	}
	if len(threads) != 0 {
		t.Fatalf("expected no threads, got %d", len(threads))
	}
}
