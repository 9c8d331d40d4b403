// Package notifier delivers stock change alerts to chat channels.
package notifier

import (
	"context"

	"pokewatch/stockworker/internal/detect"
	"pokewatch/stockworker/internal/extract"
)

// Notifier defines the interface for sending stock alerts
type Notifier interface {
	// NotifyChanges sends an alert for each stock change event
	NotifyChanges(ctx context.Context, events []detect.ChangeEvent) error

	// NotifyDiscoveries announces products seen for the first time
	NotifyDiscoveries(ctx context.Context, records []extract.ProductRecord) error
}
