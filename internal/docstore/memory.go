package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. Bodies are kept as JSON so callers
// never share memory with stored documents.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Document
	globals     map[string]Document
	now         func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]Document),
		globals:     make(map[string]Document),
		now:         time.Now,
	}
}

func copyDocument(d Document) *Document {
	data := make(json.RawMessage, len(d.Data))
	copy(data, d.Data)
	d.Data = data
	return &d
}

func fieldsOf(d Document) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(d.Data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", d.ID, err)
	}
	return fields, nil
}

func lessValue(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return av < bv
	case float64:
		bv, _ := b.(float64)
		return av < bv
	case bool:
		bv, _ := b.(bool)
		return !av && bv
	case nil:
		return b != nil
	}
	return false
}

func (s *MemoryStore) Find(ctx context.Context, collection string, q Query) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type candidate struct {
		doc    Document
		fields map[string]any
	}
	var matched []candidate
	for _, d := range s.collections[collection] {
		fields, err := fieldsOf(d)
		if err != nil {
			return nil, err
		}
		ok := true
		for k, want := range q.Where {
			if err := validField(k); err != nil {
				return nil, err
			}
			if got, isString := fields[k].(string); !isString || got != want {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, candidate{doc: d, fields: fields})
		}
	}

	if q.Sort != "" {
		field, desc, err := parseSort(q.Sort)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(matched, func(i, j int) bool {
			if desc {
				return lessValue(matched[j].fields[field], matched[i].fields[field])
			}
			return lessValue(matched[i].fields[field], matched[j].fields[field])
		})
	}

	limit := limitOf(q)
	docs := make([]Document, 0, len(matched))
	for i, c := range matched {
		if limit > 0 && i == limit {
			break
		}
		docs = append(docs, *copyDocument(c.doc))
	}
	return docs, nil
}

func (s *MemoryStore) FindByID(ctx context.Context, collection, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.collections[collection] {
		if d.ID == id {
			return copyDocument(d), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Create(ctx context.Context, collection string, data any) (*Document, error) {
	body, err := encode(data)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	d := Document{ID: uuid.NewString(), Data: body, CreatedAt: now, UpdatedAt: now}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = append(s.collections[collection], *copyDocument(d))
	return copyDocument(d), nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, data any) (*Document, error) {
	body, err := encode(data)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collections[collection]
	for i := range docs {
		if docs[i].ID == id {
			docs[i].Data = body
			docs[i].UpdatedAt = s.now().UTC()
			return copyDocument(docs[i]), nil
		}
	}
	return nil, ErrNotFound
}

func globalKey(slug, locale string) string {
	return slug + "\x00" + locale
}

func (s *MemoryStore) FindGlobal(ctx context.Context, slug, locale string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.globals[globalKey(slug, locale)]; ok {
		return copyDocument(d), nil
	}
	if d, ok := s.globals[globalKey(slug, "")]; ok {
		return copyDocument(d), nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateGlobal(ctx context.Context, slug, locale string, data any) (*Document, error) {
	body, err := encode(data)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.globals[globalKey(slug, locale)]
	if !ok {
		d = Document{ID: slug, CreatedAt: now}
	}
	d.Data = body
	d.UpdatedAt = now
	s.globals[globalKey(slug, locale)] = d
	return copyDocument(d), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
