package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SQLStore is a Store backed by the documents and globals tables.
// It supports the "mysql" and "sqlite3" drivers.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

type documentRow struct {
	ID        string `db:"id"`
	Data      string `db:"data"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

func (r documentRow) toDocument() Document {
	return Document{
		ID:        r.ID,
		Data:      json.RawMessage(r.Data),
		CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(r.UpdatedAt).UTC(),
	}
}

// NewSQLStore creates a new SQLStore over an open connection pool.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// jsonField returns the dialect's expression for reading a JSON path bound as a parameter.
func (s *SQLStore) jsonField() string {
	if s.db.DriverName() == "mysql" {
		return "JSON_UNQUOTE(JSON_EXTRACT(data, ?))"
	}
	return "json_extract(data, ?)"
}

// Find returns the documents of a collection matching q.
func (s *SQLStore) Find(ctx context.Context, collection string, q Query) ([]Document, error) {
	var sb strings.Builder
	args := []any{collection}
	sb.WriteString("SELECT id, data, created_at, updated_at FROM documents WHERE collection = ?")

	keys := make([]string, 0, len(q.Where))
	for k := range q.Where {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := validField(k); err != nil {
			return nil, err
		}
		sb.WriteString(" AND " + s.jsonField() + " = ?")
		args = append(args, "$."+k, q.Where[k])
	}

	if q.Sort != "" {
		field, desc, err := parseSort(q.Sort)
		if err != nil {
			return nil, err
		}
		sb.WriteString(" ORDER BY " + s.jsonField())
		if desc {
			sb.WriteString(" DESC")
		}
		args = append(args, "$."+field)
	} else {
		sb.WriteString(" ORDER BY created_at, id")
	}
	if limit := limitOf(q); limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(sb.String()), args...); err != nil {
		return nil, fmt.Errorf("failed to find documents in %s: %w", collection, err)
	}
	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, r.toDocument())
	}
	return docs, nil
}

// FindByID retrieves a single document by its ID.
func (s *SQLStore) FindByID(ctx context.Context, collection, id string) (*Document, error) {
	var row documentRow
	query := `SELECT id, data, created_at, updated_at FROM documents WHERE collection = ? AND id = ?`
	if err := s.db.GetContext(ctx, &row, s.db.Rebind(query), collection, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}
	doc := row.toDocument()
	return &doc, nil
}

// Create inserts a new document and returns it with its generated ID.
func (s *SQLStore) Create(ctx context.Context, collection string, data any) (*Document, error) {
	body, err := encode(data)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	row := documentRow{
		ID:        uuid.NewString(),
		Data:      string(body),
		CreatedAt: now.UnixMilli(),
		UpdatedAt: now.UnixMilli(),
	}
	query := `INSERT INTO documents (id, collection, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), row.ID, collection, row.Data, row.CreatedAt, row.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create document in %s: %w", collection, err)
	}
	doc := row.toDocument()
	return &doc, nil
}

// Update replaces the body of an existing document.
func (s *SQLStore) Update(ctx context.Context, collection, id string, data any) (*Document, error) {
	body, err := encode(data)
	if err != nil {
		return nil, err
	}
	query := `UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?`
	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), string(body), s.now().UTC().UnixMilli(), collection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update document %s/%s: %w", collection, id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	// MySQL reports zero affected rows for a no-op write, so confirm the row is really missing.
	if rowsAffected == 0 {
		if _, err := s.FindByID(ctx, collection, id); err != nil {
			return nil, err
		}
	}
	return s.FindByID(ctx, collection, id)
}

// FindGlobal returns the global for slug in locale, falling back to the
// locale-less global.
func (s *SQLStore) FindGlobal(ctx context.Context, slug, locale string) (*Document, error) {
	var row struct {
		Data      string `db:"data"`
		UpdatedAt int64  `db:"updated_at"`
	}
	query := `SELECT data, updated_at FROM globals WHERE slug = ? AND locale IN (?, '') ORDER BY locale DESC LIMIT 1`
	if err := s.db.GetContext(ctx, &row, s.db.Rebind(query), slug, locale); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get global %s: %w", slug, err)
	}
	updated := time.UnixMilli(row.UpdatedAt).UTC()
	return &Document{ID: slug, Data: json.RawMessage(row.Data), CreatedAt: updated, UpdatedAt: updated}, nil
}

// UpdateGlobal upserts the global for slug and locale.
func (s *SQLStore) UpdateGlobal(ctx context.Context, slug, locale string, data any) (*Document, error) {
	body, err := encode(data)
	if err != nil {
		return nil, err
	}
	var query string
	if s.db.DriverName() == "mysql" {
		query = `INSERT INTO globals (slug, locale, data, updated_at) VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE data = VALUES(data), updated_at = VALUES(updated_at)`
	} else {
		query = `INSERT INTO globals (slug, locale, data, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT (slug, locale) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	}
	now := s.now().UTC()
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), slug, locale, string(body), now.UnixMilli()); err != nil {
		return nil, fmt.Errorf("failed to update global %s: %w", slug, err)
	}
	return &Document{ID: slug, Data: body, CreatedAt: now, UpdatedAt: now}, nil
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
