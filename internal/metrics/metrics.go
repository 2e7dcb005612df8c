// Package metrics counts engine outcomes with Prometheus collectors.
//
// atlas runs as a short-lived batch job, so metrics are not served over
// HTTP. They are written to a file for the node exporter textfile
// collector once the command finishes.
package metrics

import (
	"fmt"

	"github.com/distribox/atlas"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors of one atlas run. It implements
// atlas.Observer.
type Metrics struct {
	registry *prometheus.Registry

	ImagesTotal   *prometheus.CounterVec // atlas_images_total{operation,status}
	FailuresTotal *prometheus.CounterVec // atlas_image_failures_total{kind}
	UploadedBytes prometheus.Counter     // atlas_uploaded_bytes_total
	LastRun       prometheus.Gauge       // atlas_last_run_timestamp_seconds
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return &Metrics{
		registry: reg,

		ImagesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_images_total",
			Help: "Images processed by operation and status",
		}, []string{"operation", "status"}),

		FailuresTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_image_failures_total",
			Help: "Failed images by error kind",
		}, []string{"kind"}),

		UploadedBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "atlas_uploaded_bytes_total",
			Help: "Image bytes streamed to the object store",
		}),

		LastRun: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "atlas_last_run_timestamp_seconds",
			Help: "Unix time the last atlas command finished",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Observe(o atlas.Outcome) {
	m.ImagesTotal.WithLabelValues(string(o.Op), string(o.Status)).Inc()
	if o.Status == atlas.StatusFailed {
		kind := o.Kind()
		if kind == "" {
			kind = "Other"
		}
		m.FailuresTotal.WithLabelValues(kind).Inc()
	}
	if o.Bytes > 0 {
		m.UploadedBytes.Add(float64(o.Bytes))
	}
}

// WriteTextfile stamps the run time and writes every metric to path in the
// text exposition format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	m.LastRun.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
