//go:build unit

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-cookieconsent/internal/auth"
	"go-cookieconsent/internal/banner"
	"go-cookieconsent/internal/bannerconfig"
	"go-cookieconsent/internal/data"
	"go-cookieconsent/internal/logger"
	"go-cookieconsent/internal/middleware"
	"go-cookieconsent/internal/service"
	"go-cookieconsent/internal/view"
	"go-cookieconsent/web"

	"github.com/go-chi/chi/v5"
)

type testDeps struct {
	consents *mockConsentService
	configs  *mockConfigService
	admin    *mockAdminService
	sessions *mockSessionManager
}

func newTestRouter(t *testing.T) (*chi.Mux, *testDeps) {
	t.Helper()
	log := logger.Nop()
	v, err := view.New(web.TemplateFS)
	if err != nil {
		t.Fatalf("Failed to parse templates: %v", err)
	}
	enforcer, err := auth.NewEnforcer("", nil)
	if err != nil {
		t.Fatalf("Failed to create enforcer: %v", err)
	}
	auth.SeedDefaultPolicies(enforcer, log)

	deps := &testDeps{
		consents: &mockConsentService{},
		configs: &mockConfigService{snapshot: &service.Snapshot{
			Config: &bannerconfig.Config{Mode: "opt-in", Revision: 3},
			Scripts: []bannerconfig.ActiveScript{
				{Service: "Matomo", Key: "matomo", Category: "analytics", HTML: "<script>matomo()</script>"},
			},
			Categories: []data.Category{
				{ID: "c1", Name: "necessary", Title: "Necessary", Description: "Always **on**.", Enabled: true, Required: true},
				{ID: "c2", Name: "analytics", Description: "Counts <img src=x onerror=alert(1)>visits.", Enabled: true},
			},
		}},
		admin:    &mockAdminService{records: map[string]*data.ConsentRecord{"abc": {ID: "r1", ConsentID: "abc"}}},
		sessions: &mockSessionManager{},
	}

	router := NewRouter(Router{
		Consent:    NewConsentHandler(deps.consents, log),
		Banner:     NewBannerHandler(deps.configs, banner.NewRenderer(deps.configs, banner.ClientOptions{Endpoint: "/consent-log", LibraryURL: "/static/cookieconsent.umd.js"}, log), v, "en", log),
		Admin:      NewAdminHandler(deps.admin, deps.sessions, log),
		Sessions:   deps.sessions,
		Authz:      middleware.Authorizer(enforcer, log),
		APIErrors:  middleware.JSONError(log),
		PageErrors: middleware.Error(log, v),
		Metrics:    http.NotFoundHandler(),
	})
	return router, deps
}

func do(router http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, rr.Body.String())
	}
	return body
}

const validConsent = `{"consentId":"abc","event":{"acceptedCategories":["necessary"],"rejectedCategories":["analytics"],"acceptType":"necessary","action":"granted"}}`

func TestConsentHandler(t *testing.T) {
	router, deps := newTestRouter(t)

	rr := do(router, "POST", "/api/consent", validConsent, map[string]string{"X-User-ID": "user-7"})
	if rr.Code != http.StatusOK {
		t.Fatalf("want status %d; got %d (%s)", http.StatusOK, rr.Code, rr.Body.String())
	}
	body := decode(t, rr)
	if body["success"] != true {
		t.Errorf("want success=true; got %v", body["success"])
	}
	record, ok := body["record"].(map[string]interface{})
	if !ok {
		t.Fatalf("want record object; got %v", body["record"])
	}
	if record["eventsCount"] != float64(1) || record["rejectedCategoriesCount"] != float64(1) {
		t.Errorf("want virtual counts in record; got %v", record)
	}
	if deps.consents.lastMeta.UserID == nil || *deps.consents.lastMeta.UserID != "user-7" {
		t.Errorf("want user reference user-7; got %v", deps.consents.lastMeta.UserID)
	}
}

func TestConsentHandler_MethodNotAllowed(t *testing.T) {
	router, deps := newTestRouter(t)

	for _, method := range []string{"GET", "PUT", "DELETE", "PATCH"} {
		rr := do(router, method, "/api/consent", "", nil)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: want status %d; got %d", method, http.StatusMethodNotAllowed, rr.Code)
		}
		if got := rr.Header().Get("Allow"); got != "POST" {
			t.Errorf("%s: want Allow POST; got %q", method, got)
		}
		if body := decode(t, rr); body["error"] != "Method not allowed" {
			t.Errorf("%s: unexpected body %v", method, body)
		}
	}
	if deps.consents.recordCalled != 0 {
		t.Errorf("want no records; got %d", deps.consents.recordCalled)
	}
}

func TestConsentHandler_InvalidBody(t *testing.T) {
	router, deps := newTestRouter(t)

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"empty body", "", "body"},
		{"malformed json", "{", "body"},
		{"missing event", `{"consentId":"abc"}`, "event"},
		{"invalid action", `{"consentId":"abc","event":{"acceptedCategories":[],"acceptType":"all","action":"nope"}}`, "event.action"},
		{"empty action", `{"consentId":"abc","event":{"acceptedCategories":["necessary"],"acceptType":"all","action":""}}`, "event.action"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(router, "POST", "/api/consent", tt.body, nil)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("want status %d; got %d", http.StatusBadRequest, rr.Code)
			}
			body := decode(t, rr)
			if body["error"] != "Invalid request body" {
				t.Errorf("want error message; got %v", body["error"])
			}
			details, _ := body["details"].([]interface{})
			if len(details) == 0 {
				t.Fatalf("want details; got %v", body)
			}
			first := details[0].(map[string]interface{})
			if first["field"] != tt.wantField {
				t.Errorf("want field %q; got %v", tt.wantField, first["field"])
			}
		})
	}
	if deps.consents.recordCalled != 0 {
		t.Errorf("invalid bodies must not be recorded; got %d", deps.consents.recordCalled)
	}
}

func TestConsentHandler_StoreFailure(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.consents.errToReturn = errors.New("dial tcp: connection refused")

	rr := do(router, "POST", "/api/consent", validConsent, nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("want status %d; got %d", http.StatusInternalServerError, rr.Code)
	}
	if strings.Contains(rr.Body.String(), "connection refused") {
		t.Errorf("internal error leaked to client: %s", rr.Body.String())
	}
	if body := decode(t, rr); body["error"] != "Internal server error" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestConfigHandler(t *testing.T) {
	router, deps := newTestRouter(t)

	rr := do(router, "GET", "/api/cookie-consent/config?locale=de", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("want status %d; got %d", http.StatusOK, rr.Code)
	}
	if body := decode(t, rr); body["mode"] != "opt-in" {
		t.Errorf("unexpected config %v", body)
	}
	if deps.configs.lastLocale != "de" || deps.configs.lastPreview {
		t.Errorf("want locale de without preview; got %q preview=%v", deps.configs.lastLocale, deps.configs.lastPreview)
	}

	do(router, "GET", "/api/cookie-consent/config", "", nil)
	if deps.configs.lastLocale != "en" {
		t.Errorf("want default locale en; got %q", deps.configs.lastLocale)
	}
}

func TestConfigHandler_PreviewFromSession(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.sessions.Put(context.Background(), "preview", true)

	do(router, "GET", "/api/cookie-consent/config", "", nil)
	if !deps.configs.lastPreview {
		t.Error("want preview config when the session flag is set")
	}
}

func TestSnippetHandler(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := do(router, "GET", "/cookie-consent/snippet", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("want status %d; got %d", http.StatusOK, rr.Code)
	}
	html := rr.Body.String()
	if !strings.Contains(html, `<script type="application/json" id="cc-config">`) {
		t.Errorf("want config tag; got %s", html)
	}
	if !strings.Contains(html, `"revision":3`) {
		t.Errorf("want raw JSON config; got %s", html)
	}
	if !strings.Contains(html, `<script data-category="analytics" data-service="matomo" type="text/plain">matomo()</script>`) {
		t.Errorf("want rewritten script; got %s", html)
	}

	// The bootstrap starts the banner and reports consent to the configured endpoint.
	for _, want := range []string{
		`<script src="/static/cookieconsent.umd.js"></script>`,
		`<script data-cc-bootstrap data-cc-endpoint="/consent-log">`,
		`cc.run(config)`,
		`config.onFirstConsent = function () { logConsent("granted"); };`,
		`config.onChange = function () { logConsent("modified"); };`,
		`consentId: cookie.consentId`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("want %q in snippet; got %s", want, html)
		}
	}
	if strings.Index(html, `id="cc-config"`) > strings.Index(html, "data-cc-bootstrap") {
		t.Error("config must precede the bootstrap")
	}
	if strings.Contains(html, "data-cc-bootstrap data-cc-endpoint=\"/consent-log\" data-cc-preview") {
		t.Error("live snippet must record consent")
	}
}

func TestSnippetHandler_FailsOpen(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.configs.errToReturn = bannerconfig.ErrInvalidConfiguration

	rr := do(router, "GET", "/cookie-consent/snippet", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("want status %d; got %d", http.StatusOK, rr.Code)
	}
	if strings.Contains(rr.Body.String(), "cc-config") {
		t.Errorf("want no config tag; got %s", rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "data-cc-bootstrap") {
		t.Errorf("want no bootstrap without config; got %s", rr.Body.String())
	}
}

func TestCookiePolicyHandler(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := do(router, "GET", "/cookie-policy", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("want status %d; got %d", http.StatusOK, rr.Code)
	}
	page := rr.Body.String()
	for _, want := range []string{"<strong>on</strong>", "Matomo", "(always active)", "Revision 3", `id="category-analytics"`} {
		if !strings.Contains(page, want) {
			t.Errorf("want %q in page", want)
		}
	}
	if strings.Contains(page, "onerror") {
		t.Error("description markup was not sanitized")
	}
}

func TestCookiePolicyHandler_Error(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.configs.errToReturn = errors.New("boom")

	rr := do(router, "GET", "/cookie-policy", "", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("want status %d; got %d", http.StatusInternalServerError, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Cookie policy is unavailable") {
		t.Errorf("want error page; got %s", rr.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)
	if rr := do(router, "GET", "/healthz", "", nil); rr.Code != http.StatusOK {
		t.Errorf("want status %d; got %d", http.StatusOK, rr.Code)
	}
}
