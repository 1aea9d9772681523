package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/messaging"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

// ThreadRepository is an in-memory implementation of the messaging
// persistence port, used by tests and the default dev mode.
type ThreadRepository struct {
	mu       sync.RWMutex
	threads  map[messaging.ThreadID]*threadRecord
	messages map[string]messaging.Message
}

type threadRecord struct {
	thread   messaging.Thread
	messages []string
}

// NewThreadRepository builds an empty repository.
func NewThreadRepository() *ThreadRepository {
	return &ThreadRepository{
		threads:  make(map[messaging.ThreadID]*threadRecord),
		messages: make(map[string]messaging.Message),
	}
}

// ThreadsFor returns every thread where any of the refs occupies a slot,
// messages populated, sorted by activity.
func (r *ThreadRepository) ThreadsFor(ctx context.Context, refs []participant.Ref) ([]messaging.Thread, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]messaging.Thread, 0)
	for _, record := range r.threads {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		for _, ref := range refs {
			if record.thread.Involves(ref) {
				matches = append(matches, r.materialize(record))
				break
			}
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].LastMessageAt.After(matches[j].LastMessageAt)
	})
	return matches, nil
}

// FindThread locates the canonical thread for a normalized pair, optionally
// scoped to a project.
func (r *ThreadRepository) FindThread(ctx context.Context, a, b participant.Ref, projectID string) (messaging.Thread, error) {
	a, b = participant.Normalize(a, b)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, record := range r.threads {
		if !record.thread.ParticipantA.Equal(a) || !record.thread.ParticipantB.Equal(b) {
			continue
		}
		if projectID != "" && record.thread.Metadata.ProjectID != projectID {
			continue
		}
		return r.materialize(record), nil
	}
	return messaging.Thread{}, messaging.ErrThreadNotFound
}

// CreateThread inserts a new thread record.
func (r *ThreadRepository) CreateThread(ctx context.Context, a, b participant.Ref, meta messaging.Metadata, now time.Time) (messaging.Thread, error) {
	thread, err := messaging.NewThread(messaging.ThreadID(uuid.NewString()), a, b, meta, now)
	if err != nil {
		return messaging.Thread{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threads[thread.ID] = &threadRecord{thread: thread}
	return thread, nil
}

// InsertMessage persists a message and returns the stored copy with the
// server-assigned ID and authoritative timestamp.
func (r *ThreadRepository) InsertMessage(ctx context.Context, threadID messaging.ThreadID, sender participant.Ref, content string, at time.Time) (messaging.Message, error) {
	if strings.TrimSpace(content) == "" {
		return messaging.Message{}, messaging.ErrContentRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.threads[threadID]
	if !ok {
		return messaging.Message{}, messaging.ErrThreadNotFound
	}
	if at.IsZero() {
		at = time.Now()
	}
	msg := messaging.Message{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Content:   content,
		Sender:    sender,
		Status:    messaging.StatusConfirmed,
		CreatedAt: at.UTC(),
	}
	r.messages[msg.ID] = msg
	record.messages = append(record.messages, msg.ID)
	if at.After(record.thread.LastMessageAt) {
		record.thread.LastMessageAt = at.UTC()
	}
	return msg, nil
}

// DeleteMessage removes one message.
func (r *ThreadRepository) DeleteMessage(ctx context.Context, threadID messaging.ThreadID, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.threads[threadID]
	if !ok {
		return messaging.ErrThreadNotFound
	}
	if _, ok := r.messages[messageID]; !ok {
		return messaging.ErrMessageNotFound
	}
	delete(r.messages, messageID)
	kept := record.messages[:0]
	for _, id := range record.messages {
		if id != messageID {
			kept = append(kept, id)
		}
	}
	record.messages = kept
	return nil
}

// DeleteThread removes a thread, cascading to its messages.
func (r *ThreadRepository) DeleteThread(ctx context.Context, threadID messaging.ThreadID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.threads[threadID]
	if !ok {
		return messaging.ErrThreadNotFound
	}
	for _, id := range record.messages {
		delete(r.messages, id)
	}
	delete(r.threads, threadID)
	return nil
}

// MarkRead stamps every unread message sent by sender in the thread.
func (r *ThreadRepository) MarkRead(ctx context.Context, threadID messaging.ThreadID, sender participant.Ref, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.threads[threadID]
	if !ok {
		return 0, messaging.ErrThreadNotFound
	}
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()
	updated := 0
	for _, id := range record.messages {
		msg := r.messages[id]
		if !msg.Sender.Equal(sender) || msg.ReadAt != nil {
			continue
		}
		readAt := at
		msg.ReadAt = &readAt
		r.messages[id] = msg
		updated++
	}
	return updated, nil
}

func (r *ThreadRepository) materialize(record *threadRecord) messaging.Thread {
	thread := record.thread
	thread.Messages = make([]messaging.Message, 0, len(record.messages))
	for _, id := range record.messages {
		if msg, ok := r.messages[id]; ok {
			thread.Messages = append(thread.Messages, msg)
		}
	}
	return thread
}

var _ messaging.Repository = (*ThreadRepository)(nil)
