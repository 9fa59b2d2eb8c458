package service

import (
	"context"
	"fmt"
	"time"

	"go-cookieconsent/internal/bannerconfig"
	"go-cookieconsent/internal/cache"
	"go-cookieconsent/internal/data"
	"go-cookieconsent/internal/logger"
	"go-cookieconsent/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "go-cookieconsent/service"

// Snapshot is everything the banner needs for one locale: the client
// configuration plus the scripts and categories it was derived from.
type Snapshot struct {
	Config     *bannerconfig.Config        `json:"config"`
	Scripts    []bannerconfig.ActiveScript `json:"scripts"`
	Categories []data.Category             `json:"categories"`
}

// ConfigServicer defines the interface for building banner configuration.
type ConfigServicer interface {
	MapToConfigWithCache(ctx context.Context, locale string, isPreview bool) (*bannerconfig.Config, error)
	Snapshot(ctx context.Context, locale string, isPreview bool) (*Snapshot, error)
	ClearCache(ctx context.Context) error
}

// ConfigService maps stored settings and categories into banner
// configuration, caching the result per locale.
type ConfigService struct {
	categories CategoryRepository
	settings   SettingsRepository
	cache      *cache.Cache[*Snapshot]
	metrics    *metrics.Metrics
	log        logger.Logger
	tracer     trace.Tracer
}

// NewConfigService creates a new ConfigService. metrics may be nil.
func NewConfigService(categories CategoryRepository, settings SettingsRepository, c *cache.Cache[*Snapshot], m *metrics.Metrics, log logger.Logger) *ConfigService {
	return &ConfigService{
		categories: categories,
		settings:   settings,
		cache:      c,
		metrics:    m,
		log:        log,
		tracer:     otel.Tracer(tracerName),
	}
}

// CacheKey is the cache key for a locale.
func CacheKey(locale string) string {
	if locale == "" {
		locale = "default"
	}
	return "config-" + locale
}

// MapToConfigWithCache returns the banner configuration for locale.
func (s *ConfigService) MapToConfigWithCache(ctx context.Context, locale string, isPreview bool) (*bannerconfig.Config, error) {
	snap, err := s.Snapshot(ctx, locale, isPreview)
	if err != nil {
		return nil, err
	}
	return snap.Config, nil
}

// Snapshot returns the cached snapshot for locale, rebuilding it on a miss or
// after expiry. Preview reads the draft settings and never touches the cache.
func (s *ConfigService) Snapshot(ctx context.Context, locale string, isPreview bool) (_ *Snapshot, err error) {
	ctx, span := s.tracer.Start(ctx, "ConfigService.Snapshot", trace.WithAttributes(
		attribute.String("locale", locale),
		attribute.Bool("preview", isPreview),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	key := CacheKey(locale)
	if !isPreview {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Error(err, "Failed to read config cache, rebuilding")
		}
		if ok {
			s.countHit()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
		s.countMiss()
	}

	snap, err := s.build(ctx, locale, isPreview)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementMappingFailures()
		}
		return nil, err
	}

	if !isPreview {
		if err := s.cache.Set(ctx, key, snap); err != nil {
			s.log.Error(err, "Failed to store config in cache")
		}
	}
	return snap, nil
}

// build fetches settings and categories concurrently and maps them.
func (s *ConfigService) build(ctx context.Context, locale string, isPreview bool) (*Snapshot, error) {
	var (
		settings   *data.Settings
		categories []data.Category
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		var err error
		if isPreview {
			settings, err = s.settings.FindDraft(gctx, locale)
		} else {
			settings, err = s.settings.Find(gctx, locale)
		}
		s.observe("settings", start)
		return err
	})
	g.Go(func() error {
		start := time.Now()
		var err error
		categories, err = s.categories.FindAll(gctx, data.FindOptions{Locale: locale})
		s.observe("categories", start)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", bannerconfig.ErrInvalidConfiguration, err)
	}

	cfg, err := bannerconfig.Map(settings, categories, locale)
	if err != nil {
		return nil, err
	}

	enabled := make([]data.Category, 0, len(categories))
	for _, c := range categories {
		if c.Enabled {
			enabled = append(enabled, c)
		}
	}
	return &Snapshot{
		Config:     cfg,
		Scripts:    bannerconfig.ActiveScripts(settings, categories),
		Categories: enabled,
	}, nil
}

// ClearCache evicts every cached locale.
func (s *ConfigService) ClearCache(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear config cache: %w", err)
	}
	if s.metrics != nil {
		s.metrics.IncrementCacheClears()
	}
	s.log.Debug("Config cache cleared")
	return nil
}

func (s *ConfigService) countHit() {
	if s.metrics != nil {
		s.metrics.IncrementCacheHits()
	}
}

func (s *ConfigService) countMiss() {
	if s.metrics != nil {
		s.metrics.IncrementCacheMisses()
	}
}

func (s *ConfigService) observe(entity string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStoreFetchLatency(entity, time.Since(start).Seconds())
	}
}
