// Package metrics exposes pipeline counters in the Prometheus format.
//
// Metrics live on a dedicated registry so that several collectors can
// coexist (tests, one-shot runs). In daemon mode the registry is served on
// /metrics; after a one-shot run it can be written to a node-exporter
// textfile instead.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amishk599/jobagent/internal/model"
)

const namespace = "jobagent"

// Collector holds the Prometheus collectors for one process.
type Collector struct {
	registry *prometheus.Registry

	postingsCollected *prometheus.CounterVec
	sourceFailures    *prometheus.CounterVec
	jobsInserted      prometheus.Counter
	jobsScored        prometheus.Counter
	scoreFallbacks    prometheus.Counter
	digestsSent       prometheus.Counter
	digestsFailed     prometheus.Counter
	jobsNotified      prometheus.Counter
	runDuration       prometheus.Histogram
	runsFailed        prometheus.Counter
	storeJobs         *prometheus.GaugeVec
	storeFeedback     prometheus.Gauge
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		postingsCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "postings_collected_total",
			Help:      "Raw postings produced by each source",
		}, []string{"source"}),
		sourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Runs in which a source failed as a whole",
		}, []string{"source"}),
		jobsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_inserted_total",
			Help:      "Jobs stored for the first time",
		}),
		jobsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_scored_total",
			Help:      "Jobs that received a relevance score",
		}),
		scoreFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_fallbacks_total",
			Help:      "Scores that fell back to the neutral result",
		}),
		digestsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digests_sent_total",
			Help:      "Digests delivered",
		}),
		digestsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digests_failed_total",
			Help:      "Digests that could not be delivered",
		}),
		jobsNotified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_notified_total",
			Help:      "Jobs marked as notified",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		}),
		runsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_failed_total",
			Help:      "Pipeline runs that aborted with an error",
		}),
		storeJobs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_jobs",
			Help:      "Jobs in the store by lifecycle count",
		}, []string{"state"}),
		storeFeedback: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_feedback",
			Help:      "Feedback records in the store",
		}),
	}

	c.registry.MustRegister(
		c.postingsCollected,
		c.sourceFailures,
		c.jobsInserted,
		c.jobsScored,
		c.scoreFallbacks,
		c.digestsSent,
		c.digestsFailed,
		c.jobsNotified,
		c.runDuration,
		c.runsFailed,
		c.storeJobs,
		c.storeFeedback,
	)
	return c
}

// RecordCollected adds n postings produced by source.
func (c *Collector) RecordCollected(source string, n int) {
	c.postingsCollected.WithLabelValues(source).Add(float64(n))
}

// RecordSourceFailure counts a whole-source failure.
func (c *Collector) RecordSourceFailure(source string) {
	c.sourceFailures.WithLabelValues(source).Inc()
}

// RecordInserted adds n newly stored jobs.
func (c *Collector) RecordInserted(n int) {
	c.jobsInserted.Add(float64(n))
}

// RecordScored counts one scored job.
func (c *Collector) RecordScored(fallback bool) {
	c.jobsScored.Inc()
	if fallback {
		c.scoreFallbacks.Inc()
	}
}

// RecordDigest counts a digest attempt.
func (c *Collector) RecordDigest(sent bool) {
	if sent {
		c.digestsSent.Inc()
		return
	}
	c.digestsFailed.Inc()
}

// RecordNotified adds n jobs marked as notified.
func (c *Collector) RecordNotified(n int64) {
	c.jobsNotified.Add(float64(n))
}

// ObserveRun records the duration of a run and whether it failed.
func (c *Collector) ObserveRun(seconds float64, failed bool) {
	c.runDuration.Observe(seconds)
	if failed {
		c.runsFailed.Inc()
	}
}

// SetStats mirrors a store snapshot into gauges.
func (c *Collector) SetStats(st model.Stats) {
	c.storeJobs.WithLabelValues("total").Set(float64(st.Total))
	c.storeJobs.WithLabelValues("analyzed").Set(float64(st.Analyzed))
	c.storeJobs.WithLabelValues("above_threshold").Set(float64(st.AboveThreshold))
	c.storeJobs.WithLabelValues("notified").Set(float64(st.Notified))
	c.storeFeedback.Set(float64(st.Feedback))
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// WriteToTextfile writes the registry to path for the node-exporter
// textfile collector. The file is replaced atomically.
func (c *Collector) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
