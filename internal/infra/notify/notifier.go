package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/app/policies"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/messaging"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/shared/events"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/infra/obs"
)

// Publisher is the broker surface the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// KafkaNotifier publishes thread lifecycle events for the notification
// pipeline that alerts organization managers.
type KafkaNotifier struct {
	Producer    Publisher
	TopicPrefix string
	Logger      *slog.Logger
}

const eventsTopic = "messaging.events"

func (n KafkaNotifier) ThreadCreated(ctx context.Context, org participant.Ref, thread messaging.Thread) error {
	event := messaging.ThreadCreatedEvent{
		ThreadID:    thread.ID,
		Org:         org,
		InitiatedBy: thread.Metadata.InitiatedBy,
		ProjectID:   thread.Metadata.ProjectID,
		At:          thread.LastMessageAt,
	}
	payload, err := json.Marshal(events.Wrap(event))
	if err != nil {
		return fmt.Errorf("notify: encode event: %w", err)
	}
	headers := map[string]string{"event": event.EventName()}
	if id := obs.RequestIDFromContext(ctx); id != "" {
		headers["request_id"] = id
	}
	if err := n.Producer.Publish(ctx, n.TopicPrefix+eventsTopic, string(thread.ID), payload, headers); err != nil {
		return fmt.Errorf("notify: publish %s: %w", event.EventName(), err)
	}
	if n.Logger != nil {
		n.Logger.Info("thread-created event published", "thread_id", thread.ID, "org_id", org.ID)
	}
	return nil
}

// LogNotifier is the dev fallback when no broker is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) ThreadCreated(_ context.Context, org participant.Ref, thread messaging.Thread) error {
	if n.Logger != nil {
		n.Logger.Info("thread created", "thread_id", thread.ID, "org_id", org.ID)
	}
	return nil
}

var (
	_ policies.Notifier = KafkaNotifier{}
	_ policies.Notifier = LogNotifier{}
)
