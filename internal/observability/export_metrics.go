package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ExportCollector exposes telemetry-export Prometheus metrics.
type ExportCollector struct {
	gatherer prometheus.Gatherer

	ExportDuration prometheus.Histogram
	RowsWritten    prometheus.Counter
	LastExportTime prometheus.Gauge
}

// NewExportCollector registers export metrics against the provided registerer.
func NewExportCollector(reg prometheus.Registerer) (*ExportCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "export_duration_seconds",
		Help:    "Duration of one run artifact export (CSV files plus manifest).",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
	duration, err := registerHistogram(reg, duration, "export_duration_seconds")
	if err != nil {
		return nil, err
	}

	rows := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "export_rows_written_total",
		Help: "Cumulative number of CSV rows written by the exporter.",
	})
	rows, err = registerCounter(reg, rows, "export_rows_written_total")
	if err != nil {
		return nil, err
	}

	lastExport := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "export_last_success_timestamp_seconds",
		Help: "Unix time of the last successful export.",
	})
	lastExport, err = registerGauge(reg, lastExport, "export_last_success_timestamp_seconds")
	if err != nil {
		return nil, err
	}

	return &ExportCollector{
		gatherer:       gatherer,
		ExportDuration: duration,
		RowsWritten:    rows,
		LastExportTime: lastExport,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *ExportCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveExport records a completed export of rows rows taking d.
func (c *ExportCollector) ObserveExport(rows int, d time.Duration) {
	if c == nil {
		return
	}
	if c.ExportDuration != nil {
		c.ExportDuration.Observe(d.Seconds())
	}
	if c.RowsWritten != nil {
		c.RowsWritten.Add(float64(rows))
	}
	if c.LastExportTime != nil {
		c.LastExportTime.SetToCurrentTime()
	}
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
