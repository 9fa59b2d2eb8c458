package bannerconfig

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"go-cookieconsent/internal/data"
)

// ErrInvalidConfiguration wraps every mapping failure.
var ErrInvalidConfiguration = errors.New("invalid cookie consent configuration")

var whitespace = regexp.MustCompile(`\s+`)

// ServiceKey normalises a service name into the key used in the categories map.
func ServiceKey(service string) string {
	return whitespace.ReplaceAllString(strings.ToLower(service), "_")
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

// ActiveScript is a script whose category is enabled and which is enabled itself.
type ActiveScript struct {
	Service  string
	Key      string
	Category string
	Required bool
	HTML     string
}

// scriptCategory finds the enabled category a script points at, by ID or by name.
func scriptCategory(s data.Script, enabled []data.Category) (data.Category, bool) {
	for _, c := range enabled {
		if s.Category != "" && (s.Category == c.ID || s.Category == c.Name) {
			return c, true
		}
	}
	return data.Category{}, false
}

func enabledCategories(categories []data.Category) []data.Category {
	enabled := make([]data.Category, 0, len(categories))
	for _, c := range categories {
		if c.Enabled {
			enabled = append(enabled, c)
		}
	}
	return enabled
}

// ActiveScripts lists the scripts that may be rendered, in settings order.
func ActiveScripts(settings *data.Settings, categories []data.Category) []ActiveScript {
	if settings == nil {
		return nil
	}
	enabled := enabledCategories(categories)
	var active []ActiveScript
	for _, s := range settings.Scripts {
		if !s.IsEnabled() {
			continue
		}
		c, ok := scriptCategory(s, enabled)
		if !ok {
			continue
		}
		active = append(active, ActiveScript{
			Service:  s.Service,
			Key:      ServiceKey(s.Service),
			Category: c.Name,
			Required: c.Required,
			HTML:     s.HTML,
		})
	}
	return active
}

func oneOf(field, value string, allowed []string) error {
	if !slices.Contains(allowed, value) {
		return invalid("%s %q is not one of %s", field, value, strings.Join(allowed, ", "))
	}
	return nil
}

func validate(cfg *Config, enabled []data.Category) error {
	seen := make(map[string]bool, len(enabled))
	for _, c := range enabled {
		if !data.CategoryNamePattern.MatchString(c.Name) {
			return invalid("category name %q is not a valid slug", c.Name)
		}
		if seen[c.Name] {
			return invalid("duplicate category name %q", c.Name)
		}
		seen[c.Name] = true
	}
	if cfg.Revision < 0 {
		return invalid("revision must not be negative, got %d", cfg.Revision)
	}
	if cfg.Cookie.ExpiresAfterDays <= 0 {
		return invalid("cookie lifetime must be positive, got %d days", cfg.Cookie.ExpiresAfterDays)
	}
	if cfg.Cookie.Name == "" {
		return invalid("cookie name must not be empty")
	}
	for _, check := range []error{
		oneOf("mode", cfg.Mode, modes),
		oneOf("cookie sameSite", cfg.Cookie.SameSite, sameSiteValues),
		oneOf("consent modal layout", cfg.GUIOptions.ConsentModal.Layout, consentLayouts),
		oneOf("consent modal position", cfg.GUIOptions.ConsentModal.Position, consentPositions),
		oneOf("preferences modal layout", cfg.GUIOptions.PreferencesModal.Layout, preferencesLayouts),
	} {
		if check != nil {
			return check
		}
	}
	return nil
}

// Map builds the client configuration from settings (nil when never saved)
// and the category documents. It is pure: it reads nothing but its arguments.
func Map(settings *data.Settings, categories []data.Category, locale string) (cfg *Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			cfg, err = nil, invalid("%v", r)
		}
	}()

	if locale == "" {
		locale = DefaultLocale
	}
	s := settings
	if s == nil {
		s = &data.Settings{}
	}
	cm := s.ConsentModal
	if cm == nil {
		cm = &data.ConsentModal{}
	}
	pm := s.PreferencesModal
	if pm == nil {
		pm = &data.PreferencesModal{}
	}

	enabled := enabledCategories(categories)

	categoryMap := make(map[string]CategoryConfig, len(enabled))
	sections := make([]Section, 0, len(enabled))
	for _, c := range enabled {
		categoryMap[c.Name] = CategoryConfig{Enabled: true, ReadOnly: c.Required}
		sections = append(sections, Section{
			Title:          c.Title,
			Description:    c.Description,
			LinkedCategory: c.Name,
		})
	}
	for _, script := range ActiveScripts(settings, categories) {
		entry := categoryMap[script.Category]
		if entry.Services == nil {
			entry.Services = make(map[string]Service)
		}
		entry.Services[script.Key] = Service{Label: script.Service}
		categoryMap[script.Category] = entry
	}

	cfg = &Config{
		AutoShow:   Resolve(Override(s.AutoShow), Default(DefaultAutoShow)),
		Categories: categoryMap,
		Cookie: CookieConfig{
			Name:             Resolve(Override(s.CookieName), Default(DefaultCookieName)),
			Domain:           Resolve(Override(s.CookieDomain)),
			ExpiresAfterDays: Resolve(Override(s.CookieExpiresAfterDays), Default(DefaultCookieExpiresAfterDays)),
			Path:             Resolve(Override(s.CookiePath), Default(DefaultCookiePath)),
			SameSite:         Resolve(Override(s.CookieSameSite), Default(DefaultCookieSameSite)),
		},
		DisablePageInteraction: Resolve(Override(s.DisablePageInteraction), Default(DefaultDisablePageInteraction)),
		GUIOptions: GUIOptions{
			ConsentModal: ConsentModalGUI{
				EqualWeightButtons: Resolve(Override(cm.EqualWeightButtons), Default(DefaultConsentEqualWeightButtons)),
				FlipButtons:        Resolve(Override(cm.FlipButtons), Default(DefaultConsentFlipButtons)),
				Layout:             Resolve(Override(cm.Layout), Default(DefaultConsentLayout)),
				Position:           Resolve(Override(cm.Position), Default(DefaultConsentPosition)),
			},
			PreferencesModal: PreferencesModalGUI{
				EqualWeightButtons: Resolve(Override(pm.EqualWeightButtons), Default(DefaultPreferencesEqualWeightButtons)),
				FlipButtons:        Resolve(Override(pm.FlipButtons), Default(DefaultPreferencesFlipButtons)),
				Layout:             Resolve(Override(pm.Layout), Default(DefaultPreferencesLayout)),
			},
		},
		HideFromBots: Resolve(Override(s.HideFromBots), Default(DefaultHideFromBots)),
		Language: Language{
			AutoDetect: LanguageAutoDetect,
			Default:    locale,
			Translations: map[string]Translation{
				locale: {
					ConsentModal: ConsentModalText{
						AcceptAllBtn:       Resolve(Override(cm.AcceptAllBtn), Default(DefaultConsentAcceptAllBtn)),
						AcceptNecessaryBtn: Resolve(Override(cm.AcceptNecessaryBtn), Default(DefaultConsentAcceptNecessaryBtn)),
						Description:        Resolve(Override(cm.Description), Default(DefaultConsentDescription)),
						ShowPreferencesBtn: Resolve(Override(cm.ShowPreferencesBtn), Default(DefaultConsentShowPreferencesBtn)),
						Title:              Resolve(Override(cm.Title), Default(DefaultConsentTitle)),
					},
					PreferencesModal: PreferencesModalText{
						AcceptAllBtn:        Resolve(Override(pm.AcceptAllBtn), Default(DefaultPreferencesAcceptAllBtn)),
						AcceptNecessaryBtn:  Resolve(Override(pm.AcceptNecessaryBtn), Default(DefaultPreferencesAcceptNecessaryBtn)),
						CloseIconLabel:      Resolve(Override(pm.CloseIconLabel), Default(DefaultPreferencesCloseIconLabel)),
						SavePreferencesBtn:  Resolve(Override(pm.SavePreferencesBtn), Default(DefaultPreferencesSavePreferencesBtn)),
						Sections:            sections,
						ServiceCounterLabel: Resolve(Override(pm.ServiceCounterLabel), Default(DefaultPreferencesServiceCounterLabel)),
						Title:               Resolve(Override(pm.Title), Default(DefaultPreferencesTitle)),
					},
				},
			},
		},
		Mode:     Resolve(Override(s.Mode), Default(DefaultMode)),
		Revision: Resolve(Override(revisionOf(settings)), Default(DefaultRevision)),
	}

	if err := validate(cfg, enabled); err != nil {
		return nil, err
	}
	return cfg, nil
}

// revisionOf returns nil for settings that were never saved.
func revisionOf(s *data.Settings) *int {
	if s == nil {
		return nil
	}
	return &s.Revision
}
