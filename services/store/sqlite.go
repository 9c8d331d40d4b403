package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"pokewatch/stockworker/internal/status"
	"pokewatch/stockworker/logger"
	errs "pokewatch/stockworker/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS monitored_products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sku TEXT NOT NULL,
	store_name TEXT NOT NULL,
	product_name TEXT NOT NULL DEFAULT '',
	product_url TEXT NOT NULL DEFAULT '',
	current_stock_status TEXT NOT NULL DEFAULT 'Unknown',
	last_price REAL,
	last_checked TIMESTAMP,
	added_date TIMESTAMP,
	is_active INTEGER NOT NULL DEFAULT 1,
	UNIQUE(sku, store_name)
);

CREATE TABLE IF NOT EXISTS stock_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id INTEGER NOT NULL REFERENCES monitored_products(id),
	stock_status TEXT NOT NULL,
	price REAL,
	checked_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_products_active ON monitored_products(is_active);
CREATE INDEX IF NOT EXISTS idx_history_product ON stock_history(product_id, checked_at);
`

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log *logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database at path and ensures the
// schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.NewStorage("opening database "+path, err)
	}

	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errs.NewStorage("creating schema", err)
	}

	log := logger.ForStore()
	log.Info().Str("path", path).Msg("Database ready")
	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) GetItem(ctx context.Context, sku, sellerID string) (*MonitoredItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sku, store_name, product_name, product_url,
		       current_stock_status, last_price, last_checked, added_date, is_active
		FROM monitored_products
		WHERE sku = ? AND store_name = ?`,
		sku, sellerID)

	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errs.NewStorage("loading item", err)
	}
	return item, nil
}

func (s *SQLiteStore) AddItem(ctx context.Context, item *MonitoredItem) (int64, error) {
	added := item.AddedAt
	if added.IsZero() {
		added = time.Now()
	}
	st := item.Status
	if st == "" {
		st = status.Unknown
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO monitored_products
			(sku, store_name, product_name, product_url, current_stock_status,
			 last_price, last_checked, added_date, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(sku, store_name) DO UPDATE SET
			product_name = excluded.product_name,
			product_url = excluded.product_url,
			is_active = 1
		RETURNING id`,
		item.SKU, item.SellerID, item.Name, item.URL, st,
		nullFloat(item.Price), nullTime(item.LastChecked), added).Scan(&id)
	if err != nil {
		return 0, errs.NewStorage("adding item", err)
	}
	return id, nil
}

func (s *SQLiteStore) UpsertState(ctx context.Context, item *MonitoredItem) (int64, error) {
	checked := item.LastChecked
	if checked.IsZero() {
		checked = time.Now()
	}
	st := item.Status
	if st == "" {
		st = status.Unknown
	}

	// an observation without a price keeps the last known price, and the
	// name and URL only move forward, never get blanked
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO monitored_products
			(sku, store_name, product_name, product_url, current_stock_status,
			 last_price, last_checked, added_date, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(sku, store_name) DO UPDATE SET
			product_name = CASE WHEN excluded.product_name != ''
				THEN excluded.product_name ELSE monitored_products.product_name END,
			product_url = CASE WHEN excluded.product_url != ''
				THEN excluded.product_url ELSE monitored_products.product_url END,
			current_stock_status = excluded.current_stock_status,
			last_price = CASE WHEN excluded.last_price IS NOT NULL
				THEN excluded.last_price ELSE monitored_products.last_price END,
			last_checked = excluded.last_checked
		RETURNING id`,
		item.SKU, item.SellerID, item.Name, item.URL, st,
		nullFloat(item.Price), checked, checked).Scan(&id)
	if err != nil {
		return 0, errs.NewStorage("upserting item state", err)
	}
	return id, nil
}

func (s *SQLiteStore) AppendHistory(ctx context.Context, itemID int64, st status.Status, price *float64, checkedAt time.Time) error {
	if checkedAt.IsZero() {
		checkedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_history (product_id, stock_status, price, checked_at)
		VALUES (?, ?, ?, ?)`,
		itemID, st, nullFloat(price), checkedAt)
	if err != nil {
		return errs.NewStorage("appending history", err)
	}
	return nil
}

func (s *SQLiteStore) ListActive(ctx context.Context) ([]MonitoredItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, store_name, product_name, product_url,
		       current_stock_status, last_price, last_checked, added_date, is_active
		FROM monitored_products
		WHERE is_active = 1
		ORDER BY store_name, sku`)
	if err != nil {
		return nil, errs.NewStorage("listing active items", err)
	}
	defer rows.Close()

	var items []MonitoredItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, errs.NewStorage("scanning item", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewStorage("listing active items", err)
	}
	return items, nil
}

func (s *SQLiteStore) Deactivate(ctx context.Context, sku, sellerID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE monitored_products SET is_active = 0
		WHERE sku = ? AND store_name = ?`,
		sku, sellerID)
	if err != nil {
		return errs.NewStorage("deactivating item", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errs.NewStorage("deactivating item", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) History(ctx context.Context, itemID int64, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, stock_status, price, checked_at
		FROM stock_history
		WHERE product_id = ?
		ORDER BY checked_at DESC, id DESC
		LIMIT ?`,
		itemID, limit)
	if err != nil {
		return nil, errs.NewStorage("loading history", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			entry HistoryEntry
			price sql.NullFloat64
		)
		if err := rows.Scan(&entry.ID, &entry.ItemID, &entry.Status, &price, &entry.CheckedAt); err != nil {
			return nil, errs.NewStorage("scanning history entry", err)
		}
		if price.Valid {
			entry.Price = &price.Float64
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewStorage("loading history", err)
	}
	return entries, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*MonitoredItem, error) {
	var (
		item        MonitoredItem
		price       sql.NullFloat64
		lastChecked sql.NullTime
		addedAt     sql.NullTime
	)
	err := row.Scan(&item.ID, &item.SKU, &item.SellerID, &item.Name, &item.URL,
		&item.Status, &price, &lastChecked, &addedAt, &item.Active)
	if err != nil {
		return nil, err
	}

	if price.Valid {
		item.Price = &price.Float64
	}
	if lastChecked.Valid {
		item.LastChecked = lastChecked.Time
	}
	if addedAt.Valid {
		item.AddedAt = addedAt.Time
	}
	return &item, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
