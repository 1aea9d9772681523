package policies

import (
	"context"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/messaging"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

// Notifier is the fire-and-forget side channel pinged when a new thread is
// opened with an organization. Delivery failures never fail thread creation.
type Notifier interface {
	ThreadCreated(ctx context.Context, org participant.Ref, thread messaging.Thread) error
}
