// Package docstore is the narrow CRUD surface the consent core depends on:
// collections of JSON documents plus singleton "global" documents.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultLimit is applied when a Query does not set one.
const DefaultLimit = 100

// NoLimit as Query.Limit returns every matching document.
const NoLimit = -1

// ErrNotFound is returned by FindByID, Update and FindGlobal when nothing matches.
var ErrNotFound = errors.New("document not found")

// Store is the document-store collaborator. Documents can be created and
// replaced, never deleted.
type Store interface {
	Find(ctx context.Context, collection string, q Query) ([]Document, error)
	FindByID(ctx context.Context, collection, id string) (*Document, error)
	Create(ctx context.Context, collection string, data any) (*Document, error)
	Update(ctx context.Context, collection, id string, data any) (*Document, error)
	FindGlobal(ctx context.Context, slug, locale string) (*Document, error)
	UpdateGlobal(ctx context.Context, slug, locale string, data any) (*Document, error)
	Close() error
}

// Query narrows a Find call. Where matches top-level string fields exactly.
// Sort names a top-level field, prefixed with "-" for descending order.
type Query struct {
	Where  map[string]string
	Limit  int
	Sort   string
	Locale string
}

// Document is a stored JSON document.
type Document struct {
	ID        string
	Data      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Decode unmarshals the document body into v.
func (d *Document) Decode(v any) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", d.ID, err)
	}
	return nil
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validField guards field names that end up inside JSON paths.
func validField(name string) error {
	if !fieldPattern.MatchString(name) {
		return fmt.Errorf("invalid field name %q", name)
	}
	return nil
}

// parseSort splits "-timestamp" into ("timestamp", true).
func parseSort(sort string) (field string, desc bool, err error) {
	field = strings.TrimPrefix(sort, "-")
	desc = field != sort
	if err := validField(field); err != nil {
		return "", false, err
	}
	return field, desc, nil
}

// limitOf returns the effective limit; 0 means unbounded.
func limitOf(q Query) int {
	switch {
	case q.Limit == NoLimit:
		return 0
	case q.Limit <= 0:
		return DefaultLimit
	}
	return q.Limit
}

// encode turns caller data into the JSON body that gets persisted.
func encode(data any) (json.RawMessage, error) {
	switch v := data.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return json.RawMessage(v), nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return raw, nil
}
