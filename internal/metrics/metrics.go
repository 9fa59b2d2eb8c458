package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus collectors for consent intake and banner configuration.
type Metrics struct {
	Registry *prometheus.Registry

	ConsentEvents     *prometheus.CounterVec
	ConsentFailures   *prometheus.CounterVec
	ConfigCacheHits   prometheus.Counter
	ConfigCacheMisses prometheus.Counter
	ConfigCacheClears prometheus.Counter
	MappingFailures   prometheus.Counter
	StoreFetchLatency *prometheus.HistogramVec
	SettingsPublished prometheus.Counter
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		ConsentEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cookieconsent_consent_events_total",
			Help: "Total number of consent events recorded, labeled by action",
		}, []string{"action"}),
		ConsentFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cookieconsent_consent_failures_total",
			Help: "Total number of rejected or failed consent submissions, labeled by reason",
		}, []string{"reason"}),
		ConfigCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "cookieconsent_config_cache_hits_total",
			Help: "Total number of banner configuration cache hits",
		}),
		ConfigCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "cookieconsent_config_cache_misses_total",
			Help: "Total number of banner configuration cache misses",
		}),
		ConfigCacheClears: factory.NewCounter(prometheus.CounterOpts{
			Name: "cookieconsent_config_cache_clears_total",
			Help: "Total number of banner configuration cache invalidations",
		}),
		MappingFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "cookieconsent_config_mapping_failures_total",
			Help: "Total number of failed banner configuration builds",
		}),
		StoreFetchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cookieconsent_store_fetch_latency_seconds",
			Help:    "Latency of document store fetches in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"entity"}),
		SettingsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "cookieconsent_settings_published_total",
			Help: "Total number of settings publications",
		}),
	}
}

func (m *Metrics) IncrementConsentEvents(action string) {
	m.ConsentEvents.WithLabelValues(action).Inc()
}

func (m *Metrics) IncrementConsentFailures(reason string) {
	m.ConsentFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementCacheHits() {
	m.ConfigCacheHits.Inc()
}

func (m *Metrics) IncrementCacheMisses() {
	m.ConfigCacheMisses.Inc()
}

func (m *Metrics) IncrementCacheClears() {
	m.ConfigCacheClears.Inc()
}

func (m *Metrics) IncrementMappingFailures() {
	m.MappingFailures.Inc()
}

func (m *Metrics) IncrementSettingsPublished() {
	m.SettingsPublished.Inc()
}

// ObserveStoreFetchLatency records how long fetching an entity took.
func (m *Metrics) ObserveStoreFetchLatency(entity string, durationSeconds float64) {
	m.StoreFetchLatency.WithLabelValues(entity).Observe(durationSeconds)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
