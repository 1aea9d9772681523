package events

import "time"

// DomainEvent is the contract every published platform event satisfies.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// Envelope is the wire form an event is serialized into.
type Envelope struct {
	Name       string    `json:"name"`
	Aggregate  string    `json:"aggregate_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// Wrap builds the wire envelope for an event, carrying the event value
// itself as the payload.
func Wrap(event DomainEvent) Envelope {
	return Envelope{
		Name:       event.EventName(),
		Aggregate:  event.AggregateID(),
		OccurredAt: event.OccurredAt().UTC(),
		Payload:    event,
	}
}
