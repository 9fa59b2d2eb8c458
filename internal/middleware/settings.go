package middleware

import (
	"net/http"

	"go-cookieconsent/internal/session"
	"go-cookieconsent/internal/view"
)

// PreviewMode reads the preview flag from the session and sets a corresponding
// flag in the request context, so handlers serve draft settings and templates
// can mark the output as a preview. It must run inside sm.LoadAndSave.
func PreviewMode(sm session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			preview := sm.GetBool(r.Context(), session.PreviewKey)
			next.ServeHTTP(w, r.WithContext(view.WithPreview(r.Context(), preview)))
		})
	}
}
