package bannerconfig

// Cookie defaults.
const (
	DefaultCookieName             = "cc_cookie"
	DefaultCookiePath             = "/"
	DefaultCookieSameSite         = "Lax"
	DefaultCookieExpiresAfterDays = 182
)

// Consent modal defaults.
const (
	DefaultConsentTitle              = "We use cookies"
	DefaultConsentDescription        = "We use cookies to enhance your browsing experience, serve personalized content, and analyze our traffic."
	DefaultConsentAcceptAllBtn       = "Accept all"
	DefaultConsentAcceptNecessaryBtn = "Reject all"
	DefaultConsentShowPreferencesBtn = "Manage preferences"
	DefaultConsentLayout             = "cloud inline"
	DefaultConsentPosition           = "bottom center"
	DefaultConsentEqualWeightButtons = true
	DefaultConsentFlipButtons        = false
)

// Preferences modal defaults.
const (
	DefaultPreferencesTitle               = "Manage cookie preferences"
	DefaultPreferencesAcceptAllBtn        = "Accept all"
	DefaultPreferencesAcceptNecessaryBtn  = "Reject all"
	DefaultPreferencesSavePreferencesBtn  = "Save preferences"
	DefaultPreferencesCloseIconLabel      = "Close modal"
	DefaultPreferencesServiceCounterLabel = "Service|Services"
	DefaultPreferencesLayout              = "box"
	DefaultPreferencesEqualWeightButtons  = true
	DefaultPreferencesFlipButtons         = false
)

// Behaviour defaults.
const (
	DefaultAutoShow               = true
	DefaultHideFromBots           = true
	DefaultDisablePageInteraction = false
	DefaultMode                   = "opt-in"
	DefaultRevision               = 0
	DefaultLocale                 = "en"
	LanguageAutoDetect            = "document"
)

var (
	modes              = []string{"opt-in", "opt-out"}
	sameSiteValues     = []string{"Lax", "Strict", "None"}
	consentLayouts     = []string{"box", "cloud", "cloud inline", "bar", "bar inline"}
	preferencesLayouts = []string{"box", "bar"}
	consentPositions   = []string{"top left", "top center", "top right", "middle left", "middle center", "middle right", "bottom left", "bottom center", "bottom right"}
)
