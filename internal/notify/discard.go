package notify

import (
	"log/slog"

	"github.com/google/uuid"
)

// Discard logs and drops every notification. Used when no Kafka brokers
// are configured (local development, tests).
type Discard struct {
	Log *slog.Logger
}

func (d Discard) Enqueue(kind Kind, orderID uuid.UUID, recipient string, extra map[string]string) {
	if d.Log != nil {
		d.Log.Debug("notification discarded", "kind", kind, "order_id", orderID, "recipient", recipient)
	}
}
