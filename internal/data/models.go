package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Document-store collection and global slugs.
const (
	CategoriesCollection     = "categories"
	ConsentRecordsCollection = "consent-records"
	SettingsSlug             = "cookie-consent-settings"
	SettingsDraftSlug        = "cookie-consent-settings:draft"
	SettingsTextSlug         = "cookie-consent-settings:text"
	SettingsDraftTextSlug    = "cookie-consent-settings:draft:text"
)

// ErrDeletionDisabled is returned by operations that would destroy consent evidence.
var ErrDeletionDisabled = errors.New("consent records cannot be deleted")

// ErrInvalidCategory wraps category validation failures.
var ErrInvalidCategory = errors.New("invalid category")

// CategoryNamePattern is the slug shape every category name must have.
var CategoryNamePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

const maxCategoryNameLength = 50

// Category groups cookies and scripts by purpose.
type Category struct {
	ID          string `json:"id,omitempty" yaml:"-"`
	Name        string `json:"name" yaml:"name"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Required    bool   `json:"required" yaml:"required"`
}

// Validate checks the category name against the slug rules.
func (c *Category) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCategory)
	}
	if len(c.Name) > maxCategoryNameLength {
		return fmt.Errorf("%w: name must be at most %d characters", ErrInvalidCategory, maxCategoryNameLength)
	}
	if !CategoryNamePattern.MatchString(c.Name) {
		return fmt.Errorf("%w: name %q must be lowercase letters and numbers separated by single hyphens", ErrInvalidCategory, c.Name)
	}
	return nil
}

// Script is a tracking snippet gated behind a category. Category holds the
// category's document ID.
type Script struct {
	Service  string `json:"service"`
	Category string `json:"category"`
	HTML     string `json:"html"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

// IsEnabled reports whether the script is enabled; unset means enabled.
func (s Script) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// ConsentModal holds the admin overrides for the first-layer banner.
type ConsentModal struct {
	Title              *string `json:"title,omitempty"`
	Description        *string `json:"description,omitempty"`
	AcceptAllBtn       *string `json:"acceptAllBtn,omitempty"`
	AcceptNecessaryBtn *string `json:"acceptNecessaryBtn,omitempty"`
	ShowPreferencesBtn *string `json:"showPreferencesBtn,omitempty"`
	Layout             *string `json:"layout,omitempty"`
	Position           *string `json:"position,omitempty"`
	EqualWeightButtons *bool   `json:"equalWeightButtons,omitempty"`
	FlipButtons        *bool   `json:"flipButtons,omitempty"`
}

// PreferencesModal holds the admin overrides for the preferences dialog.
type PreferencesModal struct {
	Title               *string `json:"title,omitempty"`
	AcceptAllBtn        *string `json:"acceptAllBtn,omitempty"`
	AcceptNecessaryBtn  *string `json:"acceptNecessaryBtn,omitempty"`
	SavePreferencesBtn  *string `json:"savePreferencesBtn,omitempty"`
	CloseIconLabel      *string `json:"closeIconLabel,omitempty"`
	ServiceCounterLabel *string `json:"serviceCounterLabel,omitempty"`
	Layout              *string `json:"layout,omitempty"`
	EqualWeightButtons  *bool   `json:"equalWeightButtons,omitempty"`
	FlipButtons         *bool   `json:"flipButtons,omitempty"`
}

// Settings is the singleton consent configuration. Nil fields fall back to
// defaults. Only the modal texts vary by locale; everything else, including
// the revision, is shared by every locale.
type Settings struct {
	ConsentModal     *ConsentModal     `json:"consentModal,omitempty"`
	PreferencesModal *PreferencesModal `json:"preferencesModal,omitempty"`

	CookieName             *string `json:"cookieName,omitempty"`
	CookieDomain           *string `json:"cookieDomain,omitempty"`
	CookiePath             *string `json:"cookiePath,omitempty"`
	CookieSameSite         *string `json:"cookieSameSite,omitempty"`
	CookieExpiresAfterDays *int    `json:"cookieExpiresAfterDays,omitempty"`

	AutoShow               *bool   `json:"autoShow,omitempty"`
	HideFromBots           *bool   `json:"hideFromBots,omitempty"`
	DisablePageInteraction *bool   `json:"disablePageInteraction,omitempty"`
	Mode                   *string `json:"mode,omitempty"`

	// Revision is owned by the server and only ever incremented on publish.
	Revision int      `json:"revision"`
	Scripts  []Script `json:"scripts"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// Action is what a user did to produce a ConsentEvent.
type Action string

const (
	ActionGranted   Action = "granted"
	ActionModified  Action = "modified"
	ActionWithdrawn Action = "withdrawn"
	ActionRenewed   Action = "renewed"
)

// Valid reports whether a is one of the four known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionGranted, ActionModified, ActionWithdrawn, ActionRenewed:
		return true
	}
	return false
}

// ConsentEvent is one immutable entry in a consent history.
type ConsentEvent struct {
	Timestamp          time.Time `json:"timestamp"`
	Action             Action    `json:"action"`
	AcceptedCategories []string  `json:"acceptedCategories"`
	RejectedCategories []string  `json:"rejectedCategories"`
	AcceptType         string    `json:"acceptType"`
	UserAgent          string    `json:"userAgent,omitempty"`
	IPAddress          string    `json:"ipAddress,omitempty"`
}

// ConsentRecord is the append-only consent history of one consent identity.
type ConsentRecord struct {
	ID           string         `json:"id,omitempty"`
	ConsentID    string         `json:"consentId"`
	CreatedAt    time.Time      `json:"createdAt"`
	LastModified time.Time      `json:"lastModified"`
	Events       []ConsentEvent `json:"events"`
	User         *string        `json:"user,omitempty"`
}

func (r *ConsentRecord) lastEvent() *ConsentEvent {
	if len(r.Events) == 0 {
		return nil
	}
	return &r.Events[len(r.Events)-1]
}

// EventsCount is the number of events in the history.
func (r *ConsentRecord) EventsCount() int {
	return len(r.Events)
}

// AcceptedCategoriesCount counts the categories accepted in the latest event.
func (r *ConsentRecord) AcceptedCategoriesCount() int {
	if e := r.lastEvent(); e != nil {
		return len(e.AcceptedCategories)
	}
	return 0
}

// RejectedCategoriesCount counts the categories rejected in the latest event.
func (r *ConsentRecord) RejectedCategoriesCount() int {
	if e := r.lastEvent(); e != nil {
		return len(e.RejectedCategories)
	}
	return 0
}

// consentRecordView adds the derived counts to API responses.
type consentRecordView struct {
	consentRecordAlias
	EventsCount             int `json:"eventsCount"`
	AcceptedCategoriesCount int `json:"acceptedCategoriesCount"`
	RejectedCategoriesCount int `json:"rejectedCategoriesCount"`
}

type consentRecordAlias ConsentRecord

// MarshalJSON renders the record with its derived counts.
func (r ConsentRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(consentRecordView{
		consentRecordAlias:      consentRecordAlias(r),
		EventsCount:             r.EventsCount(),
		AcceptedCategoriesCount: r.AcceptedCategoriesCount(),
		RejectedCategoriesCount: r.RejectedCategoriesCount(),
	})
}

// sortKeyLayout is RFC 3339 with a fixed-width fraction, so stored keys
// order lexically in time order.
const sortKeyLayout = "2006-01-02T15:04:05.000000000Z07:00"

// storedConsentRecord is the persisted body; the derived counts never reach the store.
type storedConsentRecord struct {
	ConsentID    string         `json:"consentId"`
	CreatedAt    time.Time      `json:"createdAt"`
	LastModified time.Time      `json:"lastModified"`
	ModifiedKey  string         `json:"modifiedKey"`
	Events       []ConsentEvent `json:"events"`
	User         *string        `json:"user,omitempty"`
}

func (r *ConsentRecord) stored() storedConsentRecord {
	return storedConsentRecord{
		ConsentID:    r.ConsentID,
		CreatedAt:    r.CreatedAt,
		LastModified: r.LastModified,
		ModifiedKey:  r.LastModified.UTC().Format(sortKeyLayout),
		Events:       r.Events,
		User:         r.User,
	}
}
