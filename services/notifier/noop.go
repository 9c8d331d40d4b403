package notifier

import (
	"context"

	"pokewatch/stockworker/internal/detect"
	"pokewatch/stockworker/internal/extract"
	"pokewatch/stockworker/logger"
)

// NoOpNotifier implements Notifier by logging discarded alerts. It is used
// when no webhook is configured.
type NoOpNotifier struct {
	log *logger.Logger
}

var _ Notifier = (*NoOpNotifier)(nil)

// NewNoOpNotifier creates a notifier that discards alerts with a log message.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{log: logger.ForNotifier()}
}

// NotifyChanges logs and discards stock change events.
func (n *NoOpNotifier) NotifyChanges(_ context.Context, events []detect.ChangeEvent) error {
	if len(events) > 0 {
		n.log.Debug().
			Int("count", len(events)).
			Msg("Stock alerts discarded, no webhook configured")
	}
	return nil
}

// NotifyDiscoveries logs and discards discovery records.
func (n *NoOpNotifier) NotifyDiscoveries(_ context.Context, records []extract.ProductRecord) error {
	if len(records) > 0 {
		n.log.Debug().
			Int("count", len(records)).
			Msg("Discovery alerts discarded, no webhook configured")
	}
	return nil
}
