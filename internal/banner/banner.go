// Package banner assembles the HTML fragment a host page embeds to show the
// consent banner: the client configuration plus the consent-gated scripts.
package banner

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"regexp"

	"go-cookieconsent/internal/bannerconfig"
	"go-cookieconsent/internal/logger"
	"go-cookieconsent/internal/service"

	"github.com/mssola/useragent"
)

var scriptOpenTag = regexp.MustCompile(`(?i)<script`)

// Snapshotter provides the derived banner configuration for a locale.
type Snapshotter interface {
	Snapshot(ctx context.Context, locale string, isPreview bool) (*service.Snapshot, error)
}

// ClientOptions tells the in-page bootstrap where to find the consent
// library and where to report consent decisions.
type ClientOptions struct {
	// Endpoint receives {consentId, event} on first consent and on every change.
	Endpoint string
	// LibraryURL is loaded before the bootstrap when set.
	LibraryURL string
}

// Fragment is the data behind the snippet template.
type Fragment struct {
	Locale string
	// Config is the JSON client configuration. Empty when it could not be built.
	Config  template.JS
	Scripts []template.HTML
	Preview bool
	Client  ClientOptions
}

// HasConfig reports whether the banner configuration is present.
func (f *Fragment) HasConfig() bool {
	return f.Config != ""
}

// Renderer builds snippet fragments.
type Renderer struct {
	configs Snapshotter
	client  ClientOptions
	log     logger.Logger
}

// NewRenderer creates a new Renderer. An empty client endpoint defaults to /api/consent.
func NewRenderer(configs Snapshotter, client ClientOptions, log logger.Logger) *Renderer {
	if client.Endpoint == "" {
		client.Endpoint = DefaultEndpoint
	}
	return &Renderer{configs: configs, client: client, log: log}
}

// DefaultEndpoint is where consent decisions are posted unless configured otherwise.
const DefaultEndpoint = "/api/consent"

// Render never fails: when the configuration cannot be built the fragment is
// returned without config, bootstrap or scripts and the error is logged.
func (r *Renderer) Render(ctx context.Context, locale, userAgent string, isPreview bool) *Fragment {
	f := &Fragment{Locale: locale, Preview: isPreview, Client: r.client}

	snap, err := r.configs.Snapshot(ctx, locale, isPreview)
	if err != nil {
		r.log.Error(err, fmt.Sprintf("Failed to build banner configuration for locale %q", locale))
		return f
	}
	raw, err := json.Marshal(snap.Config)
	if err != nil {
		r.log.Error(err, "Failed to encode banner configuration")
		return f
	}
	// json.Marshal escapes <, > and &, so the payload cannot close the script element.
	f.Config = template.JS(raw)

	botsOnlyRequired := snap.Config.HideFromBots && IsBot(userAgent)
	for _, s := range snap.Scripts {
		if botsOnlyRequired && !s.Required {
			continue
		}
		f.Scripts = append(f.Scripts, template.HTML(RewriteScript(s)))
	}
	return f
}

// RewriteScript tags the first <script element of s.HTML with its consent
// category and service. Scripts outside a required category also get
// type="text/plain" so they stay inert until the visitor consents.
func RewriteScript(s bannerconfig.ActiveScript) string {
	loc := scriptOpenTag.FindStringIndex(s.HTML)
	if loc == nil {
		return s.HTML
	}
	attrs := fmt.Sprintf(` data-category="%s"`, html.EscapeString(s.Category))
	if s.Service != "" {
		attrs += fmt.Sprintf(` data-service="%s"`, html.EscapeString(s.Key))
	}
	if !s.Required {
		attrs += ` type="text/plain"`
	}
	return s.HTML[:loc[1]] + attrs + s.HTML[loc[1]:]
}

// IsBot reports whether the User-Agent belongs to a crawler.
func IsBot(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	return useragent.New(userAgent).Bot()
}
