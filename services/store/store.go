package store

import (
	"context"
	"errors"
	"time"

	"pokewatch/stockworker/internal/status"
)

// ErrNotFound is returned when no monitored item matches the lookup.
var ErrNotFound = errors.New("store: item not found")

// MonitoredItem is the persisted state of one product at one seller.
type MonitoredItem struct {
	ID          int64
	SKU         string
	SellerID    string
	Name        string
	URL         string
	Status      status.Status
	Price       *float64
	LastChecked time.Time
	AddedAt     time.Time
	Active      bool
}

// HistoryEntry is one recorded observation of a monitored item.
type HistoryEntry struct {
	ID        int64
	ItemID    int64
	Status    status.Status
	Price     *float64
	CheckedAt time.Time
}

// Store persists monitored items and their observation history.
type Store interface {
	// GetItem loads one item, ErrNotFound when it was never seen
	GetItem(ctx context.Context, sku, sellerID string) (*MonitoredItem, error)

	// AddItem inserts an item into monitoring, reactivating and returning
	// the existing row when the (SKU, seller) pair is already known
	AddItem(ctx context.Context, item *MonitoredItem) (int64, error)

	// UpsertState records the latest observed state for the item's
	// (SKU, seller) pair, inserting the item first if needed, and returns
	// the item ID
	UpsertState(ctx context.Context, item *MonitoredItem) (int64, error)

	// AppendHistory records one observation of an item
	AppendHistory(ctx context.Context, itemID int64, st status.Status, price *float64, checkedAt time.Time) error

	// ListActive returns all actively monitored items
	ListActive(ctx context.Context) ([]MonitoredItem, error)

	// Deactivate removes an item from monitoring without deleting its history
	Deactivate(ctx context.Context, sku, sellerID string) error

	// History returns the most recent observations of an item, newest first
	History(ctx context.Context, itemID int64, limit int) ([]HistoryEntry, error)

	// Close releases the underlying database
	Close() error
}
