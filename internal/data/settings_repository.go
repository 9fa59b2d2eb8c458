package data

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go-cookieconsent/internal/docstore"
)

// SettingsRepository reads and writes the consent settings global. The
// locale independent part is one document under SettingsSlug; modal texts
// are stored per locale under SettingsTextSlug. Drafts use the matching
// draft slugs.
type SettingsRepository struct {
	store docstore.Store
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(store docstore.Store) *SettingsRepository {
	return &SettingsRepository{store: store}
}

// localizedText is the per-locale part of Settings.
type localizedText struct {
	ConsentModal     *ConsentModal     `json:"consentModal,omitempty"`
	PreferencesModal *PreferencesModal `json:"preferencesModal,omitempty"`
}

// splitSettings separates the modal texts from the shared settings.
func splitSettings(s Settings) (Settings, localizedText) {
	var text localizedText
	if cm := s.ConsentModal; cm != nil {
		text.ConsentModal = &ConsentModal{
			Title:              cm.Title,
			Description:        cm.Description,
			AcceptAllBtn:       cm.AcceptAllBtn,
			AcceptNecessaryBtn: cm.AcceptNecessaryBtn,
			ShowPreferencesBtn: cm.ShowPreferencesBtn,
		}
		s.ConsentModal = &ConsentModal{
			Layout:             cm.Layout,
			Position:           cm.Position,
			EqualWeightButtons: cm.EqualWeightButtons,
			FlipButtons:        cm.FlipButtons,
		}
	}
	if pm := s.PreferencesModal; pm != nil {
		text.PreferencesModal = &PreferencesModal{
			Title:               pm.Title,
			AcceptAllBtn:        pm.AcceptAllBtn,
			AcceptNecessaryBtn:  pm.AcceptNecessaryBtn,
			SavePreferencesBtn:  pm.SavePreferencesBtn,
			CloseIconLabel:      pm.CloseIconLabel,
			ServiceCounterLabel: pm.ServiceCounterLabel,
		}
		s.PreferencesModal = &PreferencesModal{
			Layout:             pm.Layout,
			EqualWeightButtons: pm.EqualWeightButtons,
			FlipButtons:        pm.FlipButtons,
		}
	}
	return s, text
}

// mergeSettings lays the texts of one locale over the shared settings.
func mergeSettings(s Settings, text localizedText) Settings {
	if t := text.ConsentModal; t != nil {
		var cm ConsentModal
		if s.ConsentModal != nil {
			cm = *s.ConsentModal
		}
		cm.Title = t.Title
		cm.Description = t.Description
		cm.AcceptAllBtn = t.AcceptAllBtn
		cm.AcceptNecessaryBtn = t.AcceptNecessaryBtn
		cm.ShowPreferencesBtn = t.ShowPreferencesBtn
		s.ConsentModal = &cm
	}
	if t := text.PreferencesModal; t != nil {
		var pm PreferencesModal
		if s.PreferencesModal != nil {
			pm = *s.PreferencesModal
		}
		pm.Title = t.Title
		pm.AcceptAllBtn = t.AcceptAllBtn
		pm.AcceptNecessaryBtn = t.AcceptNecessaryBtn
		pm.SavePreferencesBtn = t.SavePreferencesBtn
		pm.CloseIconLabel = t.CloseIconLabel
		pm.ServiceCounterLabel = t.ServiceCounterLabel
		s.PreferencesModal = &pm
	}
	return s
}

// global decodes the global slug/locale into v. It returns a nil document
// when the global does not exist.
func (r *SettingsRepository) global(ctx context.Context, slug, locale string, v any) (*docstore.Document, error) {
	doc, err := r.store.FindGlobal(ctx, slug, locale)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch cookie consent settings: %w", err)
	}
	if err := doc.Decode(v); err != nil {
		return nil, fmt.Errorf("failed to fetch cookie consent settings: %w", err)
	}
	return doc, nil
}

func (r *SettingsRepository) shared(ctx context.Context, slug string) (*Settings, error) {
	var s Settings
	doc, err := r.global(ctx, slug, "", &s)
	if err != nil || doc == nil {
		return nil, err
	}
	s.UpdatedAt = doc.UpdatedAt
	return &s, nil
}

func (r *SettingsRepository) text(ctx context.Context, slug, locale string) (*localizedText, *docstore.Document, error) {
	var t localizedText
	doc, err := r.global(ctx, slug, locale, &t)
	if err != nil || doc == nil {
		return nil, nil, err
	}
	return &t, doc, nil
}

func withText(s *Settings, text *localizedText, doc *docstore.Document) *Settings {
	if text == nil {
		return s
	}
	merged := mergeSettings(*s, *text)
	if doc.UpdatedAt.After(merged.UpdatedAt) {
		merged.UpdatedAt = doc.UpdatedAt
	}
	return &merged
}

// Find returns the published settings for locale, or nil, nil when nothing
// was ever published. Locales without their own texts use the default texts.
func (r *SettingsRepository) Find(ctx context.Context, locale string) (*Settings, error) {
	s, err := r.shared(ctx, SettingsSlug)
	if err != nil || s == nil {
		return nil, err
	}
	text, doc, err := r.text(ctx, SettingsTextSlug, locale)
	if err != nil {
		return nil, err
	}
	return withText(s, text, doc), nil
}

// FindDraft returns the draft settings, falling back to the published ones
// for whichever part has no draft.
func (r *SettingsRepository) FindDraft(ctx context.Context, locale string) (*Settings, error) {
	s, err := r.shared(ctx, SettingsDraftSlug)
	if err != nil {
		return nil, err
	}
	if s == nil {
		if s, err = r.shared(ctx, SettingsSlug); err != nil || s == nil {
			return nil, err
		}
	}
	text, doc, err := r.text(ctx, SettingsDraftTextSlug, locale)
	if err != nil {
		return nil, err
	}
	if text == nil {
		if text, doc, err = r.text(ctx, SettingsTextSlug, locale); err != nil {
			return nil, err
		}
	}
	return withText(s, text, doc), nil
}

// saveText stores the locale's texts unless they equal what the locale
// already resolves to, so a locale that inherits the default texts keeps
// inheriting them.
func (r *SettingsRepository) saveText(ctx context.Context, slug, locale string, text localizedText, current *localizedText) error {
	if current != nil && sameText(*current, text) {
		return nil
	}
	if _, err := r.store.UpdateGlobal(ctx, slug, locale, text); err != nil {
		return err
	}
	return nil
}

func sameText(a, b localizedText) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}

// Publish stores s as the live settings with the revision bumped past the
// stored one. Any revision set on s is ignored. The revision and every
// locale independent field apply to all locales; only the modal texts are
// stored for locale.
func (r *SettingsRepository) Publish(ctx context.Context, s Settings, locale string) (*Settings, error) {
	current, err := r.shared(ctx, SettingsSlug)
	if err != nil {
		return nil, err
	}
	s.Revision = 1
	if current != nil {
		s.Revision = current.Revision + 1
	}

	shared, text := splitSettings(s)
	currentText, _, err := r.text(ctx, SettingsTextSlug, locale)
	if err != nil {
		return nil, err
	}
	if err := r.saveText(ctx, SettingsTextSlug, locale, text, currentText); err != nil {
		return nil, fmt.Errorf("failed to publish cookie consent settings: %w", err)
	}
	doc, err := r.store.UpdateGlobal(ctx, SettingsSlug, "", shared)
	if err != nil {
		return nil, fmt.Errorf("failed to publish cookie consent settings: %w", err)
	}
	s.UpdatedAt = doc.UpdatedAt
	return &s, nil
}

// SaveDraft stores s as the draft. The revision carried over is the published one.
func (r *SettingsRepository) SaveDraft(ctx context.Context, s Settings, locale string) (*Settings, error) {
	current, err := r.shared(ctx, SettingsSlug)
	if err != nil {
		return nil, err
	}
	s.Revision = 0
	if current != nil {
		s.Revision = current.Revision
	}

	shared, text := splitSettings(s)
	currentText, _, err := r.text(ctx, SettingsDraftTextSlug, locale)
	if err != nil {
		return nil, err
	}
	if currentText == nil {
		if currentText, _, err = r.text(ctx, SettingsTextSlug, locale); err != nil {
			return nil, err
		}
	}
	if err := r.saveText(ctx, SettingsDraftTextSlug, locale, text, currentText); err != nil {
		return nil, fmt.Errorf("failed to save cookie consent settings draft: %w", err)
	}
	doc, err := r.store.UpdateGlobal(ctx, SettingsDraftSlug, "", shared)
	if err != nil {
		return nil, fmt.Errorf("failed to save cookie consent settings draft: %w", err)
	}
	s.UpdatedAt = doc.UpdatedAt
	return &s, nil
}
