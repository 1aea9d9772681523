package messaging

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

var (
	ErrContentRequired = errors.New("messaging: message content is required")
	ErrContentTooLong  = errors.New("messaging: message content exceeds limit")
	ErrSenderRequired  = errors.New("messaging: sender is required")
)

// MaxContentRunes bounds the free-text body of a message.
const MaxContentRunes = 2000

// Status tracks the delivery lifecycle of a message on this client.
// A message is Pending from the moment it is composed until the store
// confirms the write, Confirmed once it carries a server-assigned ID, and
// Failed when the write was rejected and a retry is possible.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Message is one entry in a thread. LocalID is the stable logical identifier
// of a send attempt: it never changes across pending/failed/confirmed
// substitutions, while ID holds the server-assigned identifier once the
// write is confirmed (and the local one before that).
type Message struct {
	ID        string
	LocalID   string
	ThreadID  ThreadID
	Content   string
	Sender    participant.Ref
	Status    Status
	CreatedAt time.Time
	ReadAt    *time.Time
}

// ValidateContent trims and bounds message text.
func ValidateContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", ErrContentRequired
	}
	if utf8.RuneCountInString(content) > MaxContentRunes {
		return "", ErrContentTooLong
	}
	return content, nil
}

// NewPending builds the optimistic placeholder appended before the store
// write resolves.
func NewPending(localID string, threadID ThreadID, sender participant.Ref, content string, at time.Time) Message {
	return Message{
		ID:        localID,
		LocalID:   localID,
		ThreadID:  threadID,
		Content:   content,
		Sender:    sender,
		Status:    StatusPending,
		CreatedAt: at.UTC(),
	}
}

// IsRead reports whether the message carries a read timestamp.
func (m Message) IsRead() bool { return m.ReadAt != nil }

// Confirm substitutes the server identity into the message, keeping the
// logical LocalID intact.
func (m Message) Confirm(serverID string, at time.Time) Message {
	m.ID = serverID
	m.Status = StatusConfirmed
	if !at.IsZero() {
		m.CreatedAt = at.UTC()
	}
	return m
}

// Fail flips the message into the retryable failed state.
func (m Message) Fail() Message {
	m.Status = StatusFailed
	return m
}

// Reissue re-enters the pending state for a retry of the same attempt.
func (m Message) Reissue() Message {
	m.ID = m.LocalID
	m.Status = StatusPending
	return m
}
