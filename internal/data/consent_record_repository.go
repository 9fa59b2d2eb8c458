package data

import (
	"context"
	"fmt"
	"time"

	"go-cookieconsent/internal/docstore"
)

// ConsentRecordRepository keeps the append-only consent histories.
type ConsentRecordRepository struct {
	store docstore.Store
	now   func() time.Time
}

// NewConsentRecordRepository creates a new ConsentRecordRepository.
func NewConsentRecordRepository(store docstore.Store) *ConsentRecordRepository {
	return &ConsentRecordRepository{store: store, now: time.Now}
}

// WithClock replaces the clock used to stamp events and records.
func (r *ConsentRecordRepository) WithClock(now func() time.Time) *ConsentRecordRepository {
	r.now = now
	return r
}

func decodeConsentRecord(doc *docstore.Document) (*ConsentRecord, error) {
	var rec ConsentRecord
	if err := doc.Decode(&rec); err != nil {
		return nil, err
	}
	rec.ID = doc.ID
	return &rec, nil
}

// FindByConsentID returns the record for consentID, or nil, nil when none exists.
func (r *ConsentRecordRepository) FindByConsentID(ctx context.Context, consentID string) (*ConsentRecord, error) {
	docs, err := r.store.Find(ctx, ConsentRecordsCollection, docstore.Query{
		Where: map[string]string{"consentId": consentID},
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch consent record: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return decodeConsentRecord(&docs[0])
}

// List returns up to limit records, most recently modified first.
func (r *ConsentRecordRepository) List(ctx context.Context, limit int) ([]ConsentRecord, error) {
	docs, err := r.store.Find(ctx, ConsentRecordsCollection, docstore.Query{
		Limit: limit,
		Sort:  "-modifiedKey",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list consent records: %w", err)
	}
	records := make([]ConsentRecord, 0, len(docs))
	for i := range docs {
		rec, err := decodeConsentRecord(&docs[i])
		if err != nil {
			return nil, fmt.Errorf("failed to list consent records: %w", err)
		}
		records = append(records, *rec)
	}
	return records, nil
}

// AddConsentEvent appends event to the history of consentID, creating the
// record on first consent. The event timestamp and record times are set here.
// A user reference, once recorded, is never replaced.
func (r *ConsentRecordRepository) AddConsentEvent(ctx context.Context, consentID string, event ConsentEvent, userID *string) (*ConsentRecord, error) {
	now := r.now().UTC()
	event.Timestamp = now

	existing, err := r.FindByConsentID(ctx, consentID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		rec := &ConsentRecord{
			ConsentID:    consentID,
			CreatedAt:    now,
			LastModified: now,
			Events:       []ConsentEvent{event},
			User:         userID,
		}
		doc, err := r.store.Create(ctx, ConsentRecordsCollection, rec.stored())
		if err != nil {
			return nil, fmt.Errorf("failed to create consent record: %w", err)
		}
		rec.ID = doc.ID
		return rec, nil
	}

	existing.Events = append(existing.Events, event)
	existing.LastModified = now
	if existing.User == nil {
		existing.User = userID
	}
	if _, err := r.store.Update(ctx, ConsentRecordsCollection, existing.ID, existing.stored()); err != nil {
		return nil, fmt.Errorf("failed to append consent event: %w", err)
	}
	return existing, nil
}

// Delete always fails: consent histories are kept as compliance evidence.
func (r *ConsentRecordRepository) Delete(ctx context.Context, consentID string) error {
	return ErrDeletionDisabled
}
