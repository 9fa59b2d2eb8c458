// Package bannerconfig maps stored consent settings and categories onto the
// configuration object consumed by the vanilla-cookieconsent client library.
package bannerconfig

// Config is the argument of CookieConsent.run(). Field names follow the
// client library exactly.
type Config struct {
	AutoShow               bool                      `json:"autoShow"`
	Categories             map[string]CategoryConfig `json:"categories"`
	Cookie                 CookieConfig              `json:"cookie"`
	DisablePageInteraction bool                      `json:"disablePageInteraction"`
	GUIOptions             GUIOptions                `json:"guiOptions"`
	HideFromBots           bool                      `json:"hideFromBots"`
	Language               Language                  `json:"language"`
	Mode                   string                    `json:"mode"`
	Revision               int                       `json:"revision"`
}

type CategoryConfig struct {
	Enabled  bool               `json:"enabled"`
	ReadOnly bool               `json:"readOnly"`
	Services map[string]Service `json:"services,omitempty"`
}

type Service struct {
	Label string `json:"label"`
}

type CookieConfig struct {
	Name             string `json:"name"`
	Domain           string `json:"domain,omitempty"`
	ExpiresAfterDays int    `json:"expiresAfterDays"`
	Path             string `json:"path"`
	SameSite         string `json:"sameSite"`
}

type GUIOptions struct {
	ConsentModal     ConsentModalGUI     `json:"consentModal"`
	PreferencesModal PreferencesModalGUI `json:"preferencesModal"`
}

type ConsentModalGUI struct {
	EqualWeightButtons bool   `json:"equalWeightButtons"`
	FlipButtons        bool   `json:"flipButtons"`
	Layout             string `json:"layout"`
	Position           string `json:"position"`
}

type PreferencesModalGUI struct {
	EqualWeightButtons bool   `json:"equalWeightButtons"`
	FlipButtons        bool   `json:"flipButtons"`
	Layout             string `json:"layout"`
}

type Language struct {
	AutoDetect   string                 `json:"autoDetect"`
	Default      string                 `json:"default"`
	Translations map[string]Translation `json:"translations"`
}

type Translation struct {
	ConsentModal     ConsentModalText     `json:"consentModal"`
	PreferencesModal PreferencesModalText `json:"preferencesModal"`
}

type ConsentModalText struct {
	AcceptAllBtn       string `json:"acceptAllBtn"`
	AcceptNecessaryBtn string `json:"acceptNecessaryBtn"`
	Description        string `json:"description"`
	ShowPreferencesBtn string `json:"showPreferencesBtn"`
	Title              string `json:"title"`
}

type PreferencesModalText struct {
	AcceptAllBtn        string    `json:"acceptAllBtn"`
	AcceptNecessaryBtn  string    `json:"acceptNecessaryBtn"`
	CloseIconLabel      string    `json:"closeIconLabel"`
	SavePreferencesBtn  string    `json:"savePreferencesBtn"`
	Sections            []Section `json:"sections"`
	ServiceCounterLabel string    `json:"serviceCounterLabel"`
	Title               string    `json:"title"`
}

// Section is one category block of the preferences modal body.
type Section struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	LinkedCategory string `json:"linkedCategory"`
}
