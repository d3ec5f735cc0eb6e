package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records connect, rebind and flash outcomes.
type Collector interface {
	ObserveConnect(outcome string, d time.Duration)
	ObserveRebind(outcome string)
	ObserveFlash(strategy string, bytes int, d time.Duration)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) ObserveConnect(string, time.Duration)    {}
func (noopCollector) ObserveRebind(string)                    {}
func (noopCollector) ObserveFlash(string, int, time.Duration) {}

// PrometheusCollector keeps metrics in its own registry, written out as a
// node_exporter textfile rather than scraped.
type PrometheusCollector struct {
	registry        *prometheus.Registry
	connects        *prometheus.CounterVec
	connectDuration prometheus.Histogram
	rebinds         *prometheus.CounterVec
	flashes         *prometheus.CounterVec
	flashBytes      prometheus.Counter
	flashDuration   prometheus.Histogram
}

// NewPrometheusCollector registers the romflash metrics with a new registry.
func NewPrometheusCollector() (*PrometheusCollector, error) {
	c := &PrometheusCollector{
		registry: prometheus.NewRegistry(),
		connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "romflash_connect_total",
			Help: "Connect attempts by outcome (connected, cancelled, failed).",
		}, []string{"outcome"}),
		connectDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "romflash_connect_duration_seconds",
			Help:    "Time from port request to a finished handshake.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16},
		}),
		rebinds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "romflash_rebind_total",
			Help: "Rebind attempts after a device re-enumerated, by outcome (ok, timeout, failed).",
		}, []string{"outcome"}),
		flashes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "romflash_flash_total",
			Help: "Completed firmware writes by write strategy.",
		}, []string{"strategy"}),
		flashBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "romflash_flash_bytes_total",
			Help: "Firmware bytes written.",
		}),
		flashDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "romflash_flash_duration_seconds",
			Help:    "Time spent writing firmware.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}

	for _, m := range []prometheus.Collector{
		c.connects, c.connectDuration, c.rebinds, c.flashes, c.flashBytes, c.flashDuration,
	} {
		if err := c.registry.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *PrometheusCollector) ObserveConnect(outcome string, d time.Duration) {
	c.connects.WithLabelValues(outcome).Inc()
	if outcome == "connected" {
		c.connectDuration.Observe(d.Seconds())
	}
}

func (c *PrometheusCollector) ObserveRebind(outcome string) {
	c.rebinds.WithLabelValues(outcome).Inc()
}

func (c *PrometheusCollector) ObserveFlash(strategy string, bytes int, d time.Duration) {
	c.flashes.WithLabelValues(strategy).Inc()
	c.flashBytes.Add(float64(bytes))
	c.flashDuration.Observe(d.Seconds())
}

// Gatherer exposes the underlying registry.
func (c *PrometheusCollector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (c *PrometheusCollector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
