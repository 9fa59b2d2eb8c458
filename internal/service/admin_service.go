package service

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"go-cookieconsent/internal/bannerconfig"
	"go-cookieconsent/internal/data"
	"go-cookieconsent/internal/logger"
	"go-cookieconsent/internal/metrics"

	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/yaml.v3"
)

//go:embed seed_categories.yaml
var seedCategoriesYAML []byte

// ErrNotFound is returned when an admin operation targets a missing entity.
var ErrNotFound = errors.New("not found")

// CacheClearer drops derived configuration after admin changes.
type CacheClearer interface {
	ClearCache(ctx context.Context) error
}

// AdminServicer defines the interface for the admin API.
type AdminServicer interface {
	ListCategories(ctx context.Context, locale string) ([]data.Category, error)
	CreateCategory(ctx context.Context, c data.Category) (*data.Category, error)
	UpdateCategory(ctx context.Context, id string, c data.Category) (*data.Category, error)
	GetSettings(ctx context.Context, locale string, draft bool) (*data.Settings, error)
	SaveSettings(ctx context.Context, s data.Settings, locale string, draft bool) (*data.Settings, error)
	Republish(ctx context.Context, locale string) (*data.Settings, error)
	SeedCategories(ctx context.Context) (int, error)
	ListConsentRecords(ctx context.Context, limit int) ([]data.ConsentRecord, error)
	GetConsentRecord(ctx context.Context, consentID string) (*data.ConsentRecord, error)
	DeleteConsentRecord(ctx context.Context, consentID string) error
}

// AdminService provides the business logic behind the admin API and CLI.
type AdminService struct {
	categories CategoryRepository
	settings   SettingsRepository
	records    ConsentRecordRepository
	cache      CacheClearer
	sanitizer  *bluemonday.Policy
	metrics    *metrics.Metrics
	log        logger.Logger
}

// NewAdminService creates a new AdminService. metrics may be nil.
func NewAdminService(categories CategoryRepository, settings SettingsRepository, records ConsentRecordRepository, cache CacheClearer, m *metrics.Metrics, log logger.Logger) *AdminService {
	// Admin copy is shown as banner text; markup is not allowed in it.
	return &AdminService{
		categories: categories,
		settings:   settings,
		records:    records,
		cache:      cache,
		sanitizer:  bluemonday.StrictPolicy(),
		metrics:    m,
		log:        log,
	}
}

func (s *AdminService) sanitize(p *string) {
	if p != nil {
		*p = s.sanitizer.Sanitize(*p)
	}
}

func (s *AdminService) invalidate(ctx context.Context) {
	if err := s.cache.ClearCache(ctx); err != nil {
		s.log.Error(err, "Failed to invalidate config cache")
	}
}

// ListCategories lists every category, enabled or not, ordered by name.
func (s *AdminService) ListCategories(ctx context.Context, locale string) ([]data.Category, error) {
	return s.categories.FindAll(ctx, data.FindOptions{Locale: locale})
}

// CreateCategory stores a new category and invalidates cached configuration.
func (s *AdminService) CreateCategory(ctx context.Context, c data.Category) (*data.Category, error) {
	s.sanitize(&c.Title)
	s.sanitize(&c.Description)
	created, err := s.categories.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.log.Info(fmt.Sprintf("Category %q created", created.Name))
	return created, nil
}

// UpdateCategory replaces a category and invalidates cached configuration.
func (s *AdminService) UpdateCategory(ctx context.Context, id string, c data.Category) (*data.Category, error) {
	s.sanitize(&c.Title)
	s.sanitize(&c.Description)
	updated, err := s.categories.Update(ctx, id, c)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	s.invalidate(ctx)
	return updated, nil
}

// GetSettings returns the published or draft settings; nil when none were saved.
func (s *AdminService) GetSettings(ctx context.Context, locale string, draft bool) (*data.Settings, error) {
	if draft {
		return s.settings.FindDraft(ctx, locale)
	}
	return s.settings.Find(ctx, locale)
}

func (s *AdminService) sanitizeSettings(st *data.Settings) {
	if cm := st.ConsentModal; cm != nil {
		for _, p := range []*string{cm.Title, cm.Description, cm.AcceptAllBtn, cm.AcceptNecessaryBtn, cm.ShowPreferencesBtn} {
			s.sanitize(p)
		}
	}
	if pm := st.PreferencesModal; pm != nil {
		for _, p := range []*string{pm.Title, pm.AcceptAllBtn, pm.AcceptNecessaryBtn, pm.SavePreferencesBtn, pm.CloseIconLabel, pm.ServiceCounterLabel} {
			s.sanitize(p)
		}
	}
	for i := range st.Scripts {
		st.Scripts[i].Service = s.sanitizer.Sanitize(st.Scripts[i].Service)
	}
}

// SaveSettings validates st against the current categories and stores it as
// a draft or publishes it. Publishing bumps the revision and invalidates the cache.
func (s *AdminService) SaveSettings(ctx context.Context, st data.Settings, locale string, draft bool) (*data.Settings, error) {
	s.sanitizeSettings(&st)

	categories, err := s.categories.FindAll(ctx, data.FindOptions{Locale: locale})
	if err != nil {
		return nil, err
	}
	st.Revision = 0
	if _, err := bannerconfig.Map(&st, categories, locale); err != nil {
		return nil, err
	}

	if draft {
		return s.settings.SaveDraft(ctx, st, locale)
	}
	published, err := s.settings.Publish(ctx, st, locale)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	if s.metrics != nil {
		s.metrics.IncrementSettingsPublished()
	}
	s.log.Info(fmt.Sprintf("Cookie consent settings published at revision %d", published.Revision))
	return published, nil
}

// Republish publishes the current settings again, bumping the revision so
// every visitor is asked for consent anew.
func (s *AdminService) Republish(ctx context.Context, locale string) (*data.Settings, error) {
	current, err := s.settings.Find(ctx, locale)
	if err != nil {
		return nil, err
	}
	if current == nil {
		current = &data.Settings{}
	}
	return s.SaveSettings(ctx, *current, locale, false)
}

// SeedCategories creates the default categories that do not exist yet and
// returns how many were created.
func (s *AdminService) SeedCategories(ctx context.Context) (int, error) {
	var defaults []data.Category
	if err := yaml.Unmarshal(seedCategoriesYAML, &defaults); err != nil {
		return 0, fmt.Errorf("failed to parse seed categories: %w", err)
	}

	created := 0
	for _, c := range defaults {
		existing, err := s.categories.FindByName(ctx, c.Name)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}
		if _, err := s.categories.Create(ctx, c); err != nil {
			return created, fmt.Errorf("failed to seed category %s: %w", c.Name, err)
		}
		s.log.Info(fmt.Sprintf("Seeded category: %s", c.Name))
		created++
	}
	if created > 0 {
		s.invalidate(ctx)
	}
	return created, nil
}

// ListConsentRecords returns the most recently modified consent records.
func (s *AdminService) ListConsentRecords(ctx context.Context, limit int) ([]data.ConsentRecord, error) {
	return s.records.List(ctx, limit)
}

// GetConsentRecord returns the history for consentID.
func (s *AdminService) GetConsentRecord(ctx context.Context, consentID string) (*data.ConsentRecord, error) {
	rec, err := s.records.FindByConsentID(ctx, consentID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("consent record %s: %w", consentID, ErrNotFound)
	}
	return rec, nil
}

// DeleteConsentRecord is refused for every record.
func (s *AdminService) DeleteConsentRecord(ctx context.Context, consentID string) error {
	s.log.Warn(fmt.Sprintf("Refused deletion of consent record %s", consentID))
	return s.records.Delete(ctx, consentID)
}
