//go:build unit

package banner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go-cookieconsent/internal/bannerconfig"
	"go-cookieconsent/internal/logger"
	"go-cookieconsent/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	chromeUA    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	googlebotUA = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

type stubSnapshotter struct {
	snap   *service.Snapshot
	err    error
	called int
}

func (s *stubSnapshotter) Snapshot(ctx context.Context, locale string, isPreview bool) (*service.Snapshot, error) {
	s.called++
	return s.snap, s.err
}

func testSnapshot(hideFromBots bool) *service.Snapshot {
	return &service.Snapshot{
		Config: &bannerconfig.Config{HideFromBots: hideFromBots, Mode: "opt-in"},
		Scripts: []bannerconfig.ActiveScript{
			{Service: "Consent Log", Key: "consent_log", Category: "necessary", Required: true, HTML: `<script src="/log.js"></script>`},
			{Service: "Google Analytics", Key: "google_analytics", Category: "analytics", HTML: `<SCRIPT>ga('create')</SCRIPT>`},
		},
	}
}

func TestRewriteScript(t *testing.T) {
	tests := []struct {
		name   string
		script bannerconfig.ActiveScript
		want   string
	}{
		{
			name:   "optional category is blocked",
			script: bannerconfig.ActiveScript{Service: "Matomo", Key: "matomo", Category: "analytics", HTML: `<script>matomo()</script>`},
			want:   `<script data-category="analytics" data-service="matomo" type="text/plain">matomo()</script>`,
		},
		{
			name:   "required category runs immediately",
			script: bannerconfig.ActiveScript{Service: "Auth", Key: "auth", Category: "necessary", Required: true, HTML: `<script src="/a.js"></script>`},
			want:   `<script data-category="necessary" data-service="auth" src="/a.js"></script>`,
		},
		{
			name:   "no service",
			script: bannerconfig.ActiveScript{Category: "marketing", HTML: `<noscript>x</noscript><script>px()</script>`},
			want:   `<noscript>x</noscript><script data-category="marketing" type="text/plain">px()</script>`,
		},
		{
			name:   "no script tag",
			script: bannerconfig.ActiveScript{Category: "marketing", HTML: `<img src="/pixel.gif">`},
			want:   `<img src="/pixel.gif">`,
		},
		{
			name:   "only the first tag is rewritten",
			script: bannerconfig.ActiveScript{Key: "x", Service: "X", Category: "analytics", HTML: `<script>a()</script><script>b()</script>`},
			want:   `<script data-category="analytics" data-service="x" type="text/plain">a()</script><script>b()</script>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RewriteScript(tt.script))
		})
	}
}

func TestIsBot(t *testing.T) {
	assert.True(t, IsBot(googlebotUA))
	assert.False(t, IsBot(chromeUA))
	assert.False(t, IsBot(""))
}

func TestRender(t *testing.T) {
	stub := &stubSnapshotter{snap: testSnapshot(true)}
	r := NewRenderer(stub, ClientOptions{}, logger.Nop())

	f := r.Render(context.Background(), "en", chromeUA, false)
	require.True(t, f.HasConfig())
	assert.Contains(t, string(f.Config), `"mode":"opt-in"`)
	require.Len(t, f.Scripts, 2)
	assert.Contains(t, string(f.Scripts[1]), `type="text/plain"`)
	assert.Equal(t, "en", f.Locale)
	assert.Equal(t, DefaultEndpoint, f.Client.Endpoint)
}

func TestRender_ClientOptions(t *testing.T) {
	client := ClientOptions{Endpoint: "/cms/api/consent", LibraryURL: "https://cdn.example.com/cookieconsent.umd.js"}
	f := NewRenderer(&stubSnapshotter{snap: testSnapshot(true)}, client, logger.Nop()).Render(context.Background(), "en", chromeUA, false)
	assert.Equal(t, client, f.Client)
}

func TestRender_BotsOnlyGetRequiredScripts(t *testing.T) {
	r := NewRenderer(&stubSnapshotter{snap: testSnapshot(true)}, ClientOptions{}, logger.Nop())
	f := r.Render(context.Background(), "en", googlebotUA, false)
	require.Len(t, f.Scripts, 1)
	assert.True(t, strings.Contains(string(f.Scripts[0]), `data-category="necessary"`))

	r = NewRenderer(&stubSnapshotter{snap: testSnapshot(false)}, ClientOptions{}, logger.Nop())
	f = r.Render(context.Background(), "en", googlebotUA, false)
	assert.Len(t, f.Scripts, 2)
}

func TestRender_FailsOpen(t *testing.T) {
	stub := &stubSnapshotter{err: errors.New("store unavailable")}
	f := NewRenderer(stub, ClientOptions{}, logger.Nop()).Render(context.Background(), "de", chromeUA, true)

	assert.False(t, f.HasConfig())
	assert.Empty(t, f.Scripts)
	assert.True(t, f.Preview)
	assert.Equal(t, 1, stub.called)
}
