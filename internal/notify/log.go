package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/victor-muriuki/pos-api/internal/events"
)

// LogNotifier writes every domain event to the structured log. It backs the
// event bus when no external sink is configured.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Notify(_ context.Context, event events.Event) error {
	n.Logger.Info().
		Str("topic", event.Topic).
		Str("aggregateId", event.AggregateID).
		RawJSON("payload", event.Payload).
		Time("occurredAt", event.OccurredAt).
		Msg("domain event")
	return nil
}
