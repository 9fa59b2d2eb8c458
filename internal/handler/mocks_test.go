//go:build unit

package handler

import (
	"context"
	"net/http"

	"go-cookieconsent/internal/bannerconfig"
	"go-cookieconsent/internal/data"
	"go-cookieconsent/internal/service"
	"go-cookieconsent/internal/session"
)

// mockSessionManager is a mock implementation of the session.Manager interface.
type mockSessionManager struct {
	values    map[string]interface{}
	putKey    string
	putValue  interface{}
	removeKey string
}

// Ensure mockSessionManager implements the session.Manager interface.
var _ session.Manager = (*mockSessionManager)(nil)

func (m *mockSessionManager) LoadAndSave(next http.Handler) http.Handler { return next }
func (m *mockSessionManager) Put(ctx context.Context, key string, val interface{}) {
	m.putKey = key
	m.putValue = val
	if m.values == nil {
		m.values = make(map[string]interface{})
	}
	m.values[key] = val
}
func (m *mockSessionManager) GetBool(ctx context.Context, key string) bool {
	b, _ := m.values[key].(bool)
	return b
}
func (m *mockSessionManager) Remove(ctx context.Context, key string) {
	m.removeKey = key
	delete(m.values, key)
}

// mockConsentService is a mock implementation of the ConsentServicer interface.
type mockConsentService struct {
	errToReturn  error
	recordCalled int
	lastSub      *service.ConsentSubmission
	lastMeta     service.RequestMeta
}

var _ service.ConsentServicer = (*mockConsentService)(nil)

func (m *mockConsentService) Record(ctx context.Context, sub *service.ConsentSubmission, meta service.RequestMeta) (*data.ConsentRecord, error) {
	m.recordCalled++
	m.lastSub = sub
	m.lastMeta = meta
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	return &data.ConsentRecord{ID: "rec-1", ConsentID: sub.ConsentID, User: meta.UserID, Events: []data.ConsentEvent{sub.Event}}, nil
}

// mockConfigService is a mock implementation of the ConfigServicer interface.
type mockConfigService struct {
	snapshot      *service.Snapshot
	errToReturn   error
	lastLocale    string
	lastPreview   bool
	snapshotCalls int
}

var _ service.ConfigServicer = (*mockConfigService)(nil)

func (m *mockConfigService) MapToConfigWithCache(ctx context.Context, locale string, isPreview bool) (*bannerconfig.Config, error) {
	snap, err := m.Snapshot(ctx, locale, isPreview)
	if err != nil {
		return nil, err
	}
	return snap.Config, nil
}

func (m *mockConfigService) Snapshot(ctx context.Context, locale string, isPreview bool) (*service.Snapshot, error) {
	m.snapshotCalls++
	m.lastLocale = locale
	m.lastPreview = isPreview
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	return m.snapshot, nil
}

func (m *mockConfigService) ClearCache(ctx context.Context) error { return nil }

// mockAdminService is a mock implementation of the AdminServicer interface.
type mockAdminService struct {
	categories  []data.Category
	settings    *data.Settings
	records     map[string]*data.ConsentRecord
	errToReturn error

	createCalled int
	saveDraft    *bool
	deleteCalled int
}

var _ service.AdminServicer = (*mockAdminService)(nil)

func (m *mockAdminService) ListCategories(ctx context.Context, locale string) ([]data.Category, error) {
	return m.categories, m.errToReturn
}

func (m *mockAdminService) CreateCategory(ctx context.Context, c data.Category) (*data.Category, error) {
	m.createCalled++
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	c.ID = "cat-" + c.Name
	m.categories = append(m.categories, c)
	return &c, nil
}

func (m *mockAdminService) UpdateCategory(ctx context.Context, id string, c data.Category) (*data.Category, error) {
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	c.ID = id
	return &c, nil
}

func (m *mockAdminService) GetSettings(ctx context.Context, locale string, draft bool) (*data.Settings, error) {
	return m.settings, m.errToReturn
}

func (m *mockAdminService) SaveSettings(ctx context.Context, s data.Settings, locale string, draft bool) (*data.Settings, error) {
	m.saveDraft = &draft
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	s.Revision = 1
	m.settings = &s
	return &s, nil
}

func (m *mockAdminService) Republish(ctx context.Context, locale string) (*data.Settings, error) {
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	s := data.Settings{Revision: 2}
	return &s, nil
}

func (m *mockAdminService) SeedCategories(ctx context.Context) (int, error) { return 0, m.errToReturn }

func (m *mockAdminService) ListConsentRecords(ctx context.Context, limit int) ([]data.ConsentRecord, error) {
	var out []data.ConsentRecord
	for _, r := range m.records {
		out = append(out, *r)
	}
	return out, m.errToReturn
}

func (m *mockAdminService) GetConsentRecord(ctx context.Context, consentID string) (*data.ConsentRecord, error) {
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	if r, ok := m.records[consentID]; ok {
		return r, nil
	}
	return nil, service.ErrNotFound
}

func (m *mockAdminService) DeleteConsentRecord(ctx context.Context, consentID string) error {
	m.deleteCalled++
	return data.ErrDeletionDisabled
}
