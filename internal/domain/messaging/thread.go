package messaging

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

var (
	ErrThreadNotFound  = errors.New("messaging: thread not found")
	ErrMessageNotFound = errors.New("messaging: message not found")
	ErrSameParticipant = errors.New("messaging: cannot open a thread with yourself")
)

// ThreadID identifies the persisted conversation record.
type ThreadID string

// Metadata is the free-form context a thread was opened from.
type Metadata struct {
	ProjectID   string
	InitiatedBy participant.Ref
}

// Thread is the single bidirectional conversation record between two
// participants. The two slots are always stored in canonical order (kind,
// then id) so a pair maps to at most one thread; participant identity never
// changes after creation.
type Thread struct {
	ID            ThreadID
	ParticipantA  participant.Ref
	ParticipantB  participant.Ref
	LastMessageAt time.Time
	Metadata      Metadata
	Messages      []Message
}

// NewThread normalizes the pair and builds a thread record.
func NewThread(id ThreadID, a, b participant.Ref, meta Metadata, now time.Time) (Thread, error) {
	if a.Equal(b) {
		return Thread{}, ErrSameParticipant
	}
	first, second := participant.Normalize(a, b)
	return Thread{
		ID:            id,
		ParticipantA:  first,
		ParticipantB:  second,
		LastMessageAt: now.UTC(),
		Metadata:      meta,
	}, nil
}

// Involves reports whether ref occupies one of the two slots.
func (t Thread) Involves(ref participant.Ref) bool {
	return t.ParticipantA.Equal(ref) || t.ParticipantB.Equal(ref)
}

// Counterpart returns the slot opposite ref. ok is false when ref is not a
// participant of the thread.
func (t Thread) Counterpart(ref participant.Ref) (participant.Ref, bool) {
	switch {
	case t.ParticipantA.Equal(ref):
		return t.ParticipantB, true
	case t.ParticipantB.Equal(ref):
		return t.ParticipantA, true
	default:
		return participant.Ref{}, false
	}
}

// SortedMessages returns the messages ordered ascending by creation time
// without mutating the thread.
func (t Thread) SortedMessages() []Message {
	out := append([]Message(nil), t.Messages...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// LastMessage returns the newest message, if any.
func (t Thread) LastMessage() (Message, bool) {
	msgs := t.SortedMessages()
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}

// Repository is the persistence port the messaging core talks to. Backed by
// the in-memory store in tests and dev, and by MongoDB in production.
type Repository interface {
	// ThreadsFor returns every thread where any of the given refs occupies a
	// participant slot, messages populated.
	ThreadsFor(ctx context.Context, refs []participant.Ref) ([]Thread, error)
	// FindThread locates the canonical thread for a normalized pair,
	// optionally scoped to a project context. Returns ErrThreadNotFound when
	// absent.
	FindThread(ctx context.Context, a, b participant.Ref, projectID string) (Thread, error)
	// CreateThread inserts a new thread record and returns it.
	CreateThread(ctx context.Context, a, b participant.Ref, meta Metadata, now time.Time) (Thread, error)
	// InsertMessage persists a message and returns the stored copy with the
	// server-assigned ID and authoritative timestamp.
	InsertMessage(ctx context.Context, threadID ThreadID, sender participant.Ref, content string, at time.Time) (Message, error)
	// DeleteMessage removes one message by server ID.
	DeleteMessage(ctx context.Context, threadID ThreadID, messageID string) error
	// DeleteThread removes a thread and cascades to its messages.
	DeleteThread(ctx context.Context, threadID ThreadID) error
	// MarkRead stamps every unread message sent by sender in the thread and
	// returns how many rows were updated.
	MarkRead(ctx context.Context, threadID ThreadID, sender participant.Ref, at time.Time) (int, error)
}
