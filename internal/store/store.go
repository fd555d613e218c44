package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"vending-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// EnsureSchema creates the machine tables if they do not exist yet
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// SeedCoins creates the four coin rows with coinFloat coins each.
// Existing rows are left untouched.
func (s *Store) SeedCoins(ctx context.Context, coinFloat int) error {
	for _, d := range models.Denominations {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO coins (value, quantity) VALUES ($1, $2) ON CONFLICT (value) DO NOTHING",
			int(d), coinFloat)
		if err != nil {
			return fmt.Errorf("failed to seed coin %s: %w", d, err)
		}
	}
	return nil
}

// SeedItems loads the catalog items, skipping names that already exist.
func (s *Store) SeedItems(ctx context.Context, items []models.Item) error {
	for _, item := range items {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO items (name, price, quantity) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING",
			item.Name, item.Price, item.Quantity)
		if err != nil {
			return fmt.Errorf("failed to seed item %q: %w", item.Name, err)
		}
	}
	return nil
}

// ListCoins retrieves all coin rows, highest value first
func (s *Store) ListCoins(ctx context.Context) ([]models.Coin, error) {
	var coins []models.Coin
	err := s.db.SelectContext(ctx, &coins, "SELECT * FROM coins ORDER BY value DESC")
	return coins, err
}

// GetCoin retrieves a single coin row
func (s *Store) GetCoin(ctx context.Context, d models.Denomination) (*models.Coin, error) {
	var coin models.Coin
	err := s.db.GetContext(ctx, &coin, "SELECT * FROM coins WHERE value = $1", int(d))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrCoinNotFound, d)
	}
	if err != nil {
		return nil, err
	}
	return &coin, nil
}

// AdjustCoin applies quantity += delta to one coin row. The update is guarded
// so the quantity can never go negative; callers are expected to have checked
// availability already.
func (s *Store) AdjustCoin(ctx context.Context, d models.Denomination, delta int) error {
	if err := adjustCoin(ctx, s.db, d, delta); err != nil {
		if errors.Is(err, models.ErrCoinInvariant) {
			if _, getErr := s.GetCoin(ctx, d); getErr != nil {
				return getErr
			}
		}
		return err
	}
	return nil
}

// adjustCoin is the single write path for coin quantities, usable inside or
// outside a transaction. The WHERE guard keeps the quantity non-negative no
// matter what the caller believed was available.
func adjustCoin(ctx context.Context, q sqlx.ExecerContext, d models.Denomination, delta int) error {
	res, err := q.ExecContext(ctx,
		"UPDATE coins SET quantity = quantity + $1, updated_at = NOW() WHERE value = $2 AND quantity + $1 >= 0",
		delta, int(d))
	if err != nil {
		return fmt.Errorf("failed to adjust coin %s: %w", d, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("adjust %s by %d: %w", d, delta, models.ErrCoinInvariant)
	}
	return nil
}

// GetItemByID retrieves an item by ID
func (s *Store) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	err := s.db.GetContext(ctx, &item, "SELECT * FROM items WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", models.ErrItemNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListItems retrieves a page of catalog items
func (s *Store) ListItems(ctx context.Context, skip, take int) ([]models.Item, error) {
	var items []models.Item
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM items ORDER BY id OFFSET $1 LIMIT $2", skip, take)
	return items, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
