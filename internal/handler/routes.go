package handler

import (
	"net/http"

	"go-cookieconsent/internal/middleware"
	"go-cookieconsent/internal/session"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Router bundles what NewRouter mounts.
type Router struct {
	Consent *ConsentHandler
	Banner  *BannerHandler
	Admin   *AdminHandler

	Sessions session.Manager
	Authz    func(http.Handler) http.Handler
	// APIErrors wraps JSON endpoints, PageErrors the HTML pages.
	APIErrors  func(middleware.AppHandler) http.Handler
	PageErrors func(middleware.AppHandler) http.Handler
	Metrics    http.Handler
}

// NewRouter creates and configures a new chi router.
func NewRouter(rt Router) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Identity)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if rt.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.Metrics)
	}

	// Consent intake carries no session; it is called by every visitor.
	r.Handle("/api/consent", rt.APIErrors(rt.Consent.consentHandler))

	r.Group(func(r chi.Router) {
		r.Use(rt.Sessions.LoadAndSave)
		r.Use(middleware.PreviewMode(rt.Sessions))

		r.Method(http.MethodGet, "/api/cookie-consent/config", rt.APIErrors(rt.Banner.configHandler))
		r.Method(http.MethodGet, "/cookie-consent/snippet", rt.PageErrors(rt.Banner.snippetHandler))
		r.Method(http.MethodGet, "/cookie-policy", rt.PageErrors(rt.Banner.cookiePolicyHandler))

		r.Route("/admin", func(r chi.Router) {
			r.Use(rt.Authz)

			r.Method(http.MethodGet, "/categories", rt.APIErrors(rt.Admin.listCategoriesHandler))
			r.Method(http.MethodPost, "/categories", rt.APIErrors(rt.Admin.createCategoryHandler))
			r.Method(http.MethodPut, "/categories/{id}", rt.APIErrors(rt.Admin.updateCategoryHandler))

			r.Method(http.MethodGet, "/settings", rt.APIErrors(rt.Admin.getSettingsHandler))
			r.Method(http.MethodPut, "/settings", rt.APIErrors(rt.Admin.saveSettingsHandler))
			r.Method(http.MethodPost, "/settings/republish", rt.APIErrors(rt.Admin.republishHandler))
			r.Method(http.MethodPost, "/preview", rt.APIErrors(rt.Admin.previewHandler))

			r.Method(http.MethodGet, "/consent-records", rt.APIErrors(rt.Admin.listConsentRecordsHandler))
			r.Method(http.MethodGet, "/consent-records/{consentId}", rt.APIErrors(rt.Admin.getConsentRecordHandler))
			r.Method(http.MethodDelete, "/consent-records/{consentId}", rt.APIErrors(rt.Admin.deleteConsentRecordHandler))
		})
	})

	return r
}
