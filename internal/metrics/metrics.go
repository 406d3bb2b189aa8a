// Package metrics collects run telemetry in a Prometheus registry.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName groups pushed metrics in the Pushgateway.
const JobName = "apprank"

const namespace = "apprank"

// Collector holds the run metrics of one process.
type Collector struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	lastEntities  prometheus.Gauge
	lastSuccess   prometheus.Gauge
	runDuration   prometheus.Histogram
	upstreamPages prometheus.Counter
}

var _ contract.RunObserver = &Collector{} // Compile-time check

// NewCollector creates a collector with its own registry.
// withRuntime also registers the Go and process collectors for long-running commands.
func NewCollector(withRuntime bool) *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by outcome",
		},
		[]string{"status"},
	)
	c.lastEntities = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_entities",
		Help:      "Entities ingested by the most recent successful run",
	})
	c.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the most recent successful run",
	})
	c.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of a pipeline run",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
	})
	c.upstreamPages = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_pages_total",
		Help:      "Ranking pages fetched from the upstream service",
	})

	c.registry.MustRegister(c.runsTotal, c.lastEntities, c.lastSuccess, c.runDuration, c.upstreamPages)
	if withRuntime {
		c.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return c
}

// ObserveRun implements contract.RunObserver.
func (c *Collector) ObserveRun(status schema.RunStatus, entityCount int, duration time.Duration, finishedAt time.Time) {
	c.runsTotal.WithLabelValues(string(status)).Inc()
	c.runDuration.Observe(duration.Seconds())
	if status == schema.RunSucceeded {
		c.lastEntities.Set(float64(entityCount))
		c.lastSuccess.Set(float64(finishedAt.Unix()))
	}
}

// ObservePage counts one fetched page. Its signature matches the fetcher page hook.
func (c *Collector) ObservePage(_ int, _ int) {
	c.upstreamPages.Inc()
}

// Registry returns the Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Push sends every collected metric to the Pushgateway at url under JobName.
func (c *Collector) Push(ctx context.Context, url string) error {
	if err := push.New(url, JobName).Gatherer(c.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
