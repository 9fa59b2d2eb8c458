package service

import (
	"context"

	"go-cookieconsent/internal/data"
)

// CategoryRepository defines the interface for document-store operations on categories.
type CategoryRepository interface {
	FindAll(ctx context.Context, opts data.FindOptions) ([]data.Category, error)
	FindByID(ctx context.Context, id string) (*data.Category, error)
	FindByName(ctx context.Context, name string) (*data.Category, error)
	Create(ctx context.Context, c data.Category) (*data.Category, error)
	Update(ctx context.Context, id string, c data.Category) (*data.Category, error)
}

// SettingsRepository defines the interface for the settings global.
type SettingsRepository interface {
	Find(ctx context.Context, locale string) (*data.Settings, error)
	FindDraft(ctx context.Context, locale string) (*data.Settings, error)
	Publish(ctx context.Context, s data.Settings, locale string) (*data.Settings, error)
	SaveDraft(ctx context.Context, s data.Settings, locale string) (*data.Settings, error)
}

// ConsentRecordRepository defines the interface for consent histories.
type ConsentRecordRepository interface {
	AddConsentEvent(ctx context.Context, consentID string, event data.ConsentEvent, userID *string) (*data.ConsentRecord, error)
	FindByConsentID(ctx context.Context, consentID string) (*data.ConsentRecord, error)
	List(ctx context.Context, limit int) ([]data.ConsentRecord, error)
	Delete(ctx context.Context, consentID string) error
}

var (
	_ CategoryRepository      = (*data.CategoryRepository)(nil)
	_ SettingsRepository      = (*data.SettingsRepository)(nil)
	_ ConsentRecordRepository = (*data.ConsentRecordRepository)(nil)
)
