package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chatdump"

// Collector holds the crawl counters. A nil *Collector is valid and
// records nothing, so callers never need to guard their calls.
type Collector struct {
	registry *prometheus.Registry

	messagesFetched  *prometheus.CounterVec
	pagesFetched     *prometheus.CounterVec
	rateLimitWaits   *prometheus.CounterVec
	rateLimitSeconds *prometheus.CounterVec
	jobsFinished     *prometheus.CounterVec
	activeFetches    *prometheus.GaugeVec
	batchDuration    *prometheus.HistogramVec
	artifactBytes    prometheus.Counter
}

// New creates a Collector backed by its own registry
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		messagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_fetched_total",
			Help:      "Messages received from history pages.",
		}, []string{"platform"}),
		pagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "History page requests that succeeded.",
		}, []string{"platform"}),
		rateLimitWaits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_waits_total",
			Help:      "Rate-limit signals absorbed by backing off.",
		}, []string{"platform"}),
		rateLimitSeconds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_wait_seconds_total",
			Help:      "Time spent waiting out rate limits.",
		}, []string{"platform"}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Crawl jobs by terminal state.",
		}, []string{"platform", "outcome"}),
		activeFetches: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_fetches",
			Help:      "Jobs currently holding a concurrency permit.",
		}, []string{"platform"}),
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of whole batches.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"platform", "outcome"}),
		artifactBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_bytes_total",
			Help:      "Bytes written to output artifacts.",
		}),
	}

	c.registry.MustRegister(
		c.messagesFetched,
		c.pagesFetched,
		c.rateLimitWaits,
		c.rateLimitSeconds,
		c.jobsFinished,
		c.activeFetches,
		c.batchDuration,
		c.artifactBytes,
	)
	return c
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// PageFetched records one history page and the messages it carried
func (c *Collector) PageFetched(platform string, messages int) {
	if c == nil {
		return
	}
	c.pagesFetched.WithLabelValues(platform).Inc()
	c.messagesFetched.WithLabelValues(platform).Add(float64(messages))
}

// RateLimited records a rate-limit wait and its length
func (c *Collector) RateLimited(platform string, wait time.Duration) {
	if c == nil {
		return
	}
	c.rateLimitWaits.WithLabelValues(platform).Inc()
	c.rateLimitSeconds.WithLabelValues(platform).Add(wait.Seconds())
}

// FetchStarted marks a job as holding a fetch permit
func (c *Collector) FetchStarted(platform string) {
	if c == nil {
		return
	}
	c.activeFetches.WithLabelValues(platform).Inc()
}

// FetchEnded releases what FetchStarted recorded
func (c *Collector) FetchEnded(platform string) {
	if c == nil {
		return
	}
	c.activeFetches.WithLabelValues(platform).Dec()
}

// JobFinished counts a job in its terminal state ("completed" or "failed")
func (c *Collector) JobFinished(platform, outcome string) {
	if c == nil {
		return
	}
	c.jobsFinished.WithLabelValues(platform, outcome).Inc()
}

// BatchFinished observes how long a batch took, by outcome
func (c *Collector) BatchFinished(platform, outcome string, took time.Duration) {
	if c == nil {
		return
	}
	c.batchDuration.WithLabelValues(platform, outcome).Observe(took.Seconds())
}

// ArtifactWritten adds the size of a written archive file
func (c *Collector) ArtifactWritten(bytes int64) {
	if c == nil {
		return
	}
	c.artifactBytes.Add(float64(bytes))
}

// WriteTextfile dumps all metrics in the node_exporter textfile format
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.registry)
}
