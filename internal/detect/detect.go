package detect

import (
	"context"
	"errors"
	"math"
	"time"

	"pokewatch/stockworker/internal/extract"
	"pokewatch/stockworker/internal/status"
	"pokewatch/stockworker/logger"
	"pokewatch/stockworker/services/store"
)

// ChangeEvent reports one observed stock status transition for a product
// at a seller.
type ChangeEvent struct {
	SKU        string        `json:"sku"`
	SellerID   string        `json:"seller_id"`
	Name       string        `json:"name"`
	URL        string        `json:"url,omitempty"`
	OldStatus  status.Status `json:"old_status"`
	NewStatus  status.Status `json:"new_status"`
	Price      *float64      `json:"price,omitempty"`
	OldPrice   *float64      `json:"old_price,omitempty"`
	ObservedAt time.Time     `json:"observed_at"`
}

// Detector compares extracted records against persisted state and emits
// change events.
type Detector struct {
	store       store.Store
	priceEvents bool
	now         func() time.Time
	log         *logger.Logger
}

// DetectorOption customizes a Detector.
type DetectorOption func(*Detector)

// WithPriceEvents makes price movements emit events even when the stock
// status is unchanged.
func WithPriceEvents() DetectorOption {
	return func(d *Detector) { d.priceEvents = true }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) DetectorOption {
	return func(d *Detector) { d.now = now }
}

// NewDetector creates a detector persisting through the given store.
func NewDetector(s store.Store, opts ...DetectorOption) *Detector {
	d := &Detector{
		store: s,
		now:   time.Now,
		log:   logger.ForDetector(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect records the observation and returns a change event when the stock
// status moved, or nil when nothing changed. State and history are persisted
// whether or not an event comes out, so re-running with the same observation
// is idempotent on events.
func (d *Detector) Detect(ctx context.Context, rec extract.ProductRecord) (*ChangeEvent, error) {
	observedAt := d.now()

	previous, err := d.store.GetItem(ctx, rec.Key, rec.SellerID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	itemID, err := d.store.UpsertState(ctx, &store.MonitoredItem{
		SKU:         rec.Key,
		SellerID:    rec.SellerID,
		Name:        rec.Name,
		URL:         rec.URL,
		Status:      rec.Status,
		Price:       rec.Price,
		LastChecked: observedAt,
	})
	if err != nil {
		return nil, err
	}
	if err := d.store.AppendHistory(ctx, itemID, rec.Status, rec.Price, observedAt); err != nil {
		return nil, err
	}

	if previous == nil {
		// first sighting just establishes the baseline
		d.log.Debug().
			Str("seller", rec.SellerID).
			Str("sku", rec.Key).
			Str("status", string(rec.Status)).
			Msg("New product baselined")
		return nil, nil
	}

	event := d.diff(previous, rec, observedAt)
	if event != nil {
		d.log.Info().
			Str("seller", event.SellerID).
			Str("sku", event.SKU).
			Str("old", string(event.OldStatus)).
			Str("new", string(event.NewStatus)).
			Msg("Stock status changed")
	}
	return event, nil
}

// IsNew reports whether the record's (key, seller) pair has never been
// persisted.
func (d *Detector) IsNew(ctx context.Context, rec extract.ProductRecord) (bool, error) {
	_, err := d.store.GetItem(ctx, rec.Key, rec.SellerID)
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func (d *Detector) diff(previous *store.MonitoredItem, rec extract.ProductRecord, observedAt time.Time) *ChangeEvent {
	statusChanged := previous.Status != rec.Status
	priceChanged := d.priceEvents && priceDiffers(previous.Price, rec.Price)

	if !statusChanged && !priceChanged {
		return nil
	}

	name := rec.Name
	if name == "" {
		name = previous.Name
	}
	url := rec.URL
	if url == "" {
		url = previous.URL
	}

	return &ChangeEvent{
		SKU:        rec.Key,
		SellerID:   rec.SellerID,
		Name:       name,
		URL:        url,
		OldStatus:  previous.Status,
		NewStatus:  rec.Status,
		Price:      rec.Price,
		OldPrice:   previous.Price,
		ObservedAt: observedAt,
	}
}

// priceDiffers ignores observations without a price, the store keeps the
// last known price in that case.
func priceDiffers(old, new *float64) bool {
	if new == nil {
		return false
	}
	if old == nil {
		return true
	}
	return math.Abs(*old-*new) > 0.001
}
