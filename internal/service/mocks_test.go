//go:build unit

package service

import (
	"context"

	"go-cookieconsent/internal/data"
)

// mockCategoryRepository is a mock implementation of the CategoryRepository interface.
type mockCategoryRepository struct {
	categories  []data.Category
	errToReturn error

	findAllCalled    int
	findByNameCalled int
	createCalled     int
	updateCalled     int
	lastCreated      *data.Category
	lastUpdated      *data.Category
}

var _ CategoryRepository = (*mockCategoryRepository)(nil)

func (m *mockCategoryRepository) FindAll(ctx context.Context, opts data.FindOptions) ([]data.Category, error) {
	m.findAllCalled++
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	return append([]data.Category(nil), m.categories...), nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id string) (*data.Category, error) {
	for _, c := range m.categories {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, m.errToReturn
}

func (m *mockCategoryRepository) FindByName(ctx context.Context, name string) (*data.Category, error) {
	m.findByNameCalled++
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	for _, c := range m.categories {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *mockCategoryRepository) Create(ctx context.Context, c data.Category) (*data.Category, error) {
	m.createCalled++
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	c.ID = "cat-" + c.Name
	m.categories = append(m.categories, c)
	m.lastCreated = &c
	return &c, nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, id string, c data.Category) (*data.Category, error) {
	m.updateCalled++
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	for i := range m.categories {
		if m.categories[i].ID == id {
			c.ID = id
			m.categories[i] = c
			m.lastUpdated = &c
			return &c, nil
		}
	}
	return nil, nil
}

// mockSettingsRepository is a mock implementation of the SettingsRepository interface.
type mockSettingsRepository struct {
	published   *data.Settings
	draft       *data.Settings
	errToReturn error

	findCalled      int
	findDraftCalled int
	publishCalled   int
	saveDraftCalled int
}

var _ SettingsRepository = (*mockSettingsRepository)(nil)

func (m *mockSettingsRepository) Find(ctx context.Context, locale string) (*data.Settings, error) {
	m.findCalled++
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	return m.published, nil
}

func (m *mockSettingsRepository) FindDraft(ctx context.Context, locale string) (*data.Settings, error) {
	m.findDraftCalled++
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	if m.draft != nil {
		return m.draft, nil
	}
	return m.published, nil
}

func (m *mockSettingsRepository) Publish(ctx context.Context, s data.Settings, locale string) (*data.Settings, error) {
	m.publishCalled++
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	s.Revision = 1
	if m.published != nil {
		s.Revision = m.published.Revision + 1
	}
	m.published = &s
	return &s, nil
}

func (m *mockSettingsRepository) SaveDraft(ctx context.Context, s data.Settings, locale string) (*data.Settings, error) {
	m.saveDraftCalled++
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	m.draft = &s
	return &s, nil
}

// mockConsentRecordRepository is a mock implementation of the ConsentRecordRepository interface.
type mockConsentRecordRepository struct {
	records     map[string]*data.ConsentRecord
	errToReturn error

	addCalled    int
	deleteCalled int
	lastEvent    *data.ConsentEvent
	lastUserID   *string
}

var _ ConsentRecordRepository = (*mockConsentRecordRepository)(nil)

func (m *mockConsentRecordRepository) AddConsentEvent(ctx context.Context, consentID string, event data.ConsentEvent, userID *string) (*data.ConsentRecord, error) {
	m.addCalled++
	m.lastEvent = &event
	m.lastUserID = userID
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	if m.records == nil {
		m.records = make(map[string]*data.ConsentRecord)
	}
	rec, ok := m.records[consentID]
	if !ok {
		rec = &data.ConsentRecord{ID: "rec-" + consentID, ConsentID: consentID, User: userID}
		m.records[consentID] = rec
	}
	rec.Events = append(rec.Events, event)
	return rec, nil
}

func (m *mockConsentRecordRepository) FindByConsentID(ctx context.Context, consentID string) (*data.ConsentRecord, error) {
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	return m.records[consentID], nil
}

func (m *mockConsentRecordRepository) List(ctx context.Context, limit int) ([]data.ConsentRecord, error) {
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	var out []data.ConsentRecord
	for _, r := range m.records {
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockConsentRecordRepository) Delete(ctx context.Context, consentID string) error {
	m.deleteCalled++
	return data.ErrDeletionDisabled
}

// mockCacheClearer counts cache invalidations.
type mockCacheClearer struct {
	clearCalled int
}

func (m *mockCacheClearer) ClearCache(ctx context.Context) error {
	m.clearCalled++
	return nil
}
