package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"sort"

	"go-cookieconsent/internal/banner"
	"go-cookieconsent/internal/logger"
	"go-cookieconsent/internal/middleware"
	"go-cookieconsent/internal/service"
	"go-cookieconsent/internal/view"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// BannerHandler serves what host pages consume: the banner configuration,
// the embeddable snippet and the cookie policy page.
type BannerHandler struct {
	configs       service.ConfigServicer
	renderer      *banner.Renderer
	view          *view.View
	markdown      goldmark.Markdown
	policy        *bluemonday.Policy
	defaultLocale string
	log           logger.Logger
}

// NewBannerHandler creates a new BannerHandler with the given dependencies.
func NewBannerHandler(cs service.ConfigServicer, renderer *banner.Renderer, v *view.View, defaultLocale string, log logger.Logger) *BannerHandler {
	return &BannerHandler{
		configs:       cs,
		renderer:      renderer,
		view:          v,
		markdown:      goldmark.New(),
		policy:        bluemonday.UGCPolicy(),
		defaultLocale: defaultLocale,
		log:           log,
	}
}

func (h *BannerHandler) locale(r *http.Request) string {
	if l := r.URL.Query().Get("locale"); l != "" {
		return l
	}
	return h.defaultLocale
}

// configHandler returns the banner configuration as JSON.
func (h *BannerHandler) configHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	cfg, err := h.configs.MapToConfigWithCache(r.Context(), h.locale(r), view.IsPreview(r.Context()))
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Internal server error", Code: http.StatusInternalServerError}
	}
	w.Header().Set("Cache-Control", "no-store")
	middleware.WriteJSON(w, http.StatusOK, cfg)
	return nil
}

// snippetHandler returns the HTML fragment for the host page. It always
// answers 200; a broken configuration only drops the banner.
func (h *BannerHandler) snippetHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	fragment := h.renderer.Render(r.Context(), h.locale(r), r.UserAgent(), view.IsPreview(r.Context()))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.view.Render(w, r, "snippet.html", map[string]interface{}{"Fragment": fragment}); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render snippet", Code: http.StatusInternalServerError}
	}
	return nil
}

type policyCategory struct {
	Name        string
	Title       string
	Description template.HTML
	Required    bool
	Services    []string
}

// renderMarkdown turns an admin description into sanitized HTML.
func (h *BannerHandler) renderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(h.policy.SanitizeBytes(buf.Bytes())), nil
}

// cookiePolicyHandler renders the public cookie policy page.
func (h *BannerHandler) cookiePolicyHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	locale := h.locale(r)
	snap, err := h.configs.Snapshot(r.Context(), locale, view.IsPreview(r.Context()))
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Cookie policy is unavailable", Code: http.StatusInternalServerError}
	}

	services := make(map[string][]string)
	for _, s := range snap.Scripts {
		if s.Service != "" {
			services[s.Category] = append(services[s.Category], s.Service)
		}
	}

	categories := make([]policyCategory, 0, len(snap.Categories))
	for _, c := range snap.Categories {
		desc, err := h.renderMarkdown(c.Description)
		if err != nil {
			return &middleware.AppError{Error: fmt.Errorf("failed to render description of %s: %w", c.Name, err), Message: "Cookie policy is unavailable", Code: http.StatusInternalServerError}
		}
		title := c.Title
		if title == "" {
			title = c.Name
		}
		svc := services[c.Name]
		sort.Strings(svc)
		categories = append(categories, policyCategory{
			Name:        c.Name,
			Title:       title,
			Description: desc,
			Required:    c.Required,
			Services:    svc,
		})
	}

	data := map[string]interface{}{
		"Locale":     locale,
		"Revision":   snap.Config.Revision,
		"Categories": categories,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.view.Render(w, r, "cookie-policy.html", data); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render cookie policy", Code: http.StatusInternalServerError}
	}
	return nil
}
