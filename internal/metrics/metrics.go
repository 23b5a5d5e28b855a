// Package metrics exports per-run counters in the node-exporter textfile format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MrSnakeDoc/cellar/internal/report"
)

const namespace = "cellar"

type Collector struct {
	reg      *prometheus.Registry
	units    *prometheus.GaugeVec
	bytes    *prometheus.GaugeVec
	findings *prometheus.GaugeVec
	success  prometheus.Gauge
	lastRun  prometheus.Gauge
	duration prometheus.Gauge
}

func New() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		units: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "units",
			Help:      "Units handled by the last run, by outcome.",
		}, []string{"outcome"}),
		bytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bytes_moved",
			Help:      "Bytes transferred by the last run.",
		}, []string{"direction"}),
		findings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "findings",
			Help:      "Reconciliation findings of the last run, by category.",
		}, []string{"category"}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last run succeeded.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}
	c.reg.MustRegister(c.units, c.bytes, c.findings, c.success, c.lastRun, c.duration)
	return c
}

// Observe loads a finished report into the gauges.
func (c *Collector) Observe(r *report.Report) {
	n := r.Counts
	for outcome, v := range map[string]int64{
		"uploaded":           n.Uploaded,
		"restored":           n.Restored,
		"deleted":            n.Deleted,
		"reconstructed":      n.Reconstructed,
		"local_deleted":      n.LocalDeleted,
		"restores_requested": n.RestoresRequested,
		"restores_pending":   n.RestoresPending,
		"skipped":            n.Skipped,
		"failed":             n.Failed,
	} {
		c.units.WithLabelValues(outcome).Set(float64(v))
	}
	c.bytes.WithLabelValues("up").Set(float64(n.BytesUp))
	c.bytes.WithLabelValues("down").Set(float64(n.BytesDown))

	c.findings.WithLabelValues("validation").Set(float64(len(r.Validation)))
	c.findings.WithLabelValues("drift").Set(float64(len(r.Drifted)))
	c.findings.WithLabelValues("orphan").Set(float64(len(r.Orphaned)))

	if r.Success {
		c.success.Set(1)
	} else {
		c.success.Set(0)
	}
	if !r.Finished.IsZero() {
		c.lastRun.Set(float64(r.Finished.Unix()))
		c.duration.Set(r.Finished.Sub(r.Started).Seconds())
	}
}

// WriteFile writes the textfile atomically.
func (c *Collector) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.reg); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}

func (c *Collector) Registry() *prometheus.Registry { return c.reg }
