package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLite is a Store kept in a SQLite file, so cached values survive restarts.
// Values are stored as JSON.
type SQLite[V any] struct {
	db *sqlx.DB
}

// NewSQLite opens the SQLite database at filePath and ensures the cache table exists.
func NewSQLite[V any](filePath string) (*SQLite[V], error) {
	db, err := sqlx.Connect("sqlite", filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	// For a cache, WAL mode is generally better for concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode on sqlite cache: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS cache (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		stored_at INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &SQLite[V]{db: db}, nil
}

// Get retrieves an entry, expired or not. A missing key is not an error.
func (c *SQLite[V]) Get(ctx context.Context, key string) (Entry[V], bool, error) {
	var item struct {
		Value    []byte `db:"value"`
		StoredAt int64  `db:"stored_at"`
	}
	query := `SELECT value, stored_at FROM cache WHERE key = ?`
	if err := c.db.GetContext(ctx, &item, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry[V]{}, false, nil
		}
		return Entry[V]{}, false, fmt.Errorf("failed to get item from cache: %w", err)
	}

	var value V
	if err := json.Unmarshal(item.Value, &value); err != nil {
		return Entry[V]{}, false, fmt.Errorf("failed to decode cached item %s: %w", key, err)
	}
	return Entry[V]{Data: value, Timestamp: time.Unix(0, item.StoredAt).UTC()}, true, nil
}

// Set adds or replaces an entry.
func (c *SQLite[V]) Set(ctx context.Context, key string, entry Entry[V]) error {
	value, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("failed to encode cache item %s: %w", key, err)
	}
	query := `INSERT OR REPLACE INTO cache (key, value, stored_at) VALUES (?, ?, ?)`
	if _, err := c.db.ExecContext(ctx, query, key, value, entry.Timestamp.UnixNano()); err != nil {
		return fmt.Errorf("failed to set item in cache: %w", err)
	}
	return nil
}

// Clear removes every entry.
func (c *SQLite[V]) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM cache`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *SQLite[V]) Close() error {
	return c.db.Close()
}
