package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects and exposes metrics for one mirror process
type Collector struct {
	registry     *prometheus.Registry
	objectsTotal *prometheus.CounterVec
	bytesTotal   prometheus.Counter
	inflight     prometheus.Gauge
	duration     prometheus.Histogram
}

// New creates a new metrics collector with its own registry
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		objectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mirror_objects_total",
				Help: "Total number of objects processed by outcome",
			},
			[]string{"outcome"},
		),
		bytesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mirror_bytes_total",
				Help: "Total bytes downloaded",
			},
		),
		inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mirror_inflight_downloads",
				Help: "Number of downloads currently in flight",
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mirror_object_duration_seconds",
				Help:    "Time taken to download an object",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	c.registry.MustRegister(c.objectsTotal)
	c.registry.MustRegister(c.bytesTotal)
	c.registry.MustRegister(c.inflight)
	c.registry.MustRegister(c.duration)

	return c
}

// IncFetched increments the fetched object counter
func (c *Collector) IncFetched() {
	c.objectsTotal.WithLabelValues("fetched").Inc()
}

// IncSkipped increments the skipped object counter
func (c *Collector) IncSkipped() {
	c.objectsTotal.WithLabelValues("skipped").Inc()
}

// IncFailed increments the failed object counter
func (c *Collector) IncFailed() {
	c.objectsTotal.WithLabelValues("failed").Inc()
}

// AddBytes adds to total bytes downloaded
func (c *Collector) AddBytes(bytes int64) {
	c.bytesTotal.Add(float64(bytes))
}

// SetInflight sets the number of in-flight downloads
func (c *Collector) SetInflight(count int) {
	c.inflight.Set(float64(count))
}

// ObserveDuration observes a download duration
func (c *Collector) ObserveDuration(duration time.Duration) {
	c.duration.Observe(duration.Seconds())
}

// StartServer starts the metrics HTTP server
func (c *Collector) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}
