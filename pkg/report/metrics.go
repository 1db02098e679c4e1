package report

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bmcdonald3/fwreconcile/pkg/reconcile"
)

const namespace = "fwreconcile"

// Metrics holds the gauges exported for one run. Each run uses its own
// registry so the textfile only ever holds the latest pass.
type Metrics struct {
	registry *prometheus.Registry

	hosts        *prometheus.GaugeVec
	files        *prometheus.GaugeVec
	deletions    *prometheus.GaugeVec
	hostDuration prometheus.Histogram
	lastRun      prometheus.Gauge
	runDuration  prometheus.Gauge
}

// NewMetrics registers the run metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		hosts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hosts",
			Help:      "Hosts processed in the last run by final state and failure kind.",
		}, []string{"state", "failure"}),
		files: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "firmware_files",
			Help:      "Firmware files found in the last run by classification.",
		}, []string{"class"}),
		deletions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "deletions",
			Help:      "Delete commands in the last run by result.",
		}, []string{"status"}),
		hostDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "host_duration_seconds",
			Help:      "Wall time of the per-host workflow.",
			Buckets:   []float64{1, 2.5, 5, 10, 15, 30, 60, 120, 300},
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}
	m.registry.MustRegister(m.hosts, m.files, m.deletions, m.hostDuration, m.lastRun, m.runDuration)
	return m
}

// Observe records every outcome of r.
func (m *Metrics) Observe(r *Run, outcomes []reconcile.HostOutcome) {
	for _, class := range []string{"referenced", "orphaned"} {
		m.files.WithLabelValues(class)
	}
	for _, st := range []reconcile.DeletionStatus{reconcile.DeletionOK, reconcile.DeletionFailed, reconcile.DeletionSkipped} {
		m.deletions.WithLabelValues(string(st))
	}

	for _, o := range outcomes {
		m.hosts.WithLabelValues(string(o.State), string(o.Failure)).Inc()
		if c := o.Classification; c != nil {
			m.files.WithLabelValues("referenced").Add(float64(len(c.Referenced)))
			m.files.WithLabelValues("orphaned").Add(float64(len(c.Orphaned)))
		}
		for _, d := range o.Deletions {
			m.deletions.WithLabelValues(string(d.Status)).Inc()
		}
		m.hostDuration.Observe(o.Duration().Seconds())
	}
	m.lastRun.Set(float64(r.Finished.Unix()))
	m.runDuration.Set(r.Finished.Sub(r.Started).Seconds())
}

// Registry exposes the run registry for callers that gather or push it.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes the metrics in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return errors.Wrap(prometheus.WriteToTextfile(path, m.registry), "write metrics")
}
