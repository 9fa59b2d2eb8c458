package view

import "context"

type settingsKey string

const (
	// PreviewKey is the key for the preview mode setting in the request context.
	PreviewKey settingsKey = "preview"
)

// WithPreview stores the preview mode flag in ctx.
func WithPreview(ctx context.Context, preview bool) context.Context {
	return context.WithValue(ctx, PreviewKey, preview)
}

// IsPreview returns true if the preview mode flag is set in the request context.
func IsPreview(ctx context.Context) bool {
	preview, ok := ctx.Value(PreviewKey).(bool)
	return ok && preview
}
