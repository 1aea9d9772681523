package messaging

import (
	"time"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

// ThreadCreatedEvent is published when a conversation is started with an
// organization, so its managers can be alerted out of band.
type ThreadCreatedEvent struct {
	ThreadID    ThreadID        `json:"thread_id"`
	Org         participant.Ref `json:"org"`
	InitiatedBy participant.Ref `json:"initiated_by"`
	ProjectID   string          `json:"project_id,omitempty"`
	At          time.Time       `json:"at"`
}

func (e ThreadCreatedEvent) EventName() string     { return "messaging.thread.created" }
func (e ThreadCreatedEvent) AggregateID() string   { return string(e.ThreadID) }
func (e ThreadCreatedEvent) OccurredAt() time.Time { return e.At }
