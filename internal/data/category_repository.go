package data

import (
	"context"
	"errors"
	"fmt"

	"go-cookieconsent/internal/docstore"
)

// ErrDuplicateCategory is returned when a category name is already taken.
var ErrDuplicateCategory = errors.New("category name already exists")

// FindOptions narrows a category listing. Sort defaults to "name".
type FindOptions struct {
	Locale string
	Limit  int
	Sort   string
	Where  map[string]string
}

// CategoryRepository handles document-store operations for categories.
type CategoryRepository struct {
	store docstore.Store
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(store docstore.Store) *CategoryRepository {
	return &CategoryRepository{store: store}
}

func decodeCategory(doc *docstore.Document) (*Category, error) {
	var c Category
	if err := doc.Decode(&c); err != nil {
		return nil, err
	}
	c.ID = doc.ID
	return &c, nil
}

// FindAll lists categories matching opts. A zero Limit returns every match,
// since the banner configuration must see all categories.
func (r *CategoryRepository) FindAll(ctx context.Context, opts FindOptions) ([]Category, error) {
	sort := opts.Sort
	if sort == "" {
		sort = "name"
	}
	limit := opts.Limit
	if limit == 0 {
		limit = docstore.NoLimit
	}
	docs, err := r.store.Find(ctx, CategoriesCollection, docstore.Query{
		Where:  opts.Where,
		Limit:  limit,
		Sort:   sort,
		Locale: opts.Locale,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	categories := make([]Category, 0, len(docs))
	for i := range docs {
		c, err := decodeCategory(&docs[i])
		if err != nil {
			return nil, fmt.Errorf("failed to fetch categories: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, nil
}

// FindByID finds a category by its ID. It returns nil, nil when none exists.
func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*Category, error) {
	doc, err := r.store.FindByID(ctx, CategoriesCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil // Not found is not an error
		}
		return nil, fmt.Errorf("failed to fetch category by id: %w", err)
	}
	return decodeCategory(doc)
}

// FindByName finds a category by its unique name. It returns nil, nil when none exists.
func (r *CategoryRepository) FindByName(ctx context.Context, name string) (*Category, error) {
	categories, err := r.FindAll(ctx, FindOptions{Limit: 1, Where: map[string]string{"name": name}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch category by name: %w", err)
	}
	if len(categories) == 0 {
		return nil, nil
	}
	return &categories[0], nil
}

// FindEnabled lists the enabled categories ordered by name.
func (r *CategoryRepository) FindEnabled(ctx context.Context, locale string) ([]Category, error) {
	all, err := r.FindAll(ctx, FindOptions{Locale: locale})
	if err != nil {
		return nil, err
	}
	enabled := make([]Category, 0, len(all))
	for _, c := range all {
		if c.Enabled {
			enabled = append(enabled, c)
		}
	}
	return enabled, nil
}

// Create validates and stores a new category.
func (r *CategoryRepository) Create(ctx context.Context, c Category) (*Category, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	existing, err := r.FindByName(ctx, c.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCategory, c.Name)
	}

	c.ID = ""
	doc, err := r.store.Create(ctx, CategoriesCollection, c)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return decodeCategory(doc)
}

// Update replaces the category with the given ID. It returns nil, nil when none exists.
func (r *CategoryRepository) Update(ctx context.Context, id string, c Category) (*Category, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	existing, err := r.FindByName(ctx, c.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != id {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCategory, c.Name)
	}

	c.ID = ""
	doc, err := r.store.Update(ctx, CategoriesCollection, id, c)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return decodeCategory(doc)
}
