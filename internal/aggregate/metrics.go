package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aalhour/ioreplay/internal/tracefmt"
)

// Metrics wraps an Aggregator as a prometheus.Collector (spec.md expansion
// §2, component 11), exporting the four time accumulators, three byte
// counters, and twelve op-kind counts as gauges. Unlike a live service's
// request counters, these are cumulative end-of-phase snapshots — a Gauge
// (not a monotonic Counter) is the correct metric type since a fresh CLI
// invocation resets them to zero.
//
// Reference: containerd-nydus-snapshotter pkg/metrics/data (plain
// prometheus.NewGauge package vars) and GoogleCloudPlatform-gcsfuse's
// metrics package for the Collect-time snapshot pattern.
type Metrics struct {
	agg *Aggregator

	timeDesc  *prometheus.Desc
	bytesDesc *prometheus.Desc
	opsDesc   *prometheus.Desc
}

// NewMetrics wraps agg for Prometheus scraping.
func NewMetrics(agg *Aggregator) *Metrics {
	return &Metrics{
		agg: agg,
		timeDesc: prometheus.NewDesc(
			"ioreplay_phase_seconds_total",
			"Cumulative wall-clock time spent in each replay phase.",
			[]string{"phase"}, nil,
		),
		bytesDesc: prometheus.NewDesc(
			"ioreplay_bytes_total",
			"Cumulative bytes transferred, by phase and direction.",
			[]string{"kind"}, nil,
		),
		opsDesc: prometheus.NewDesc(
			"ioreplay_operations_total",
			"Cumulative count of replayed operations, by kind.",
			[]string{"file_op"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.timeDesc
	ch <- m.bytesDesc
	ch <- m.opsDesc
}

// Collect implements prometheus.Collector, snapshotting the Aggregator's
// current totals at scrape time.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for k := CreateTime; k < numTimeKinds; k++ {
		ch <- prometheus.MustNewConstMetric(
			m.timeDesc, prometheus.GaugeValue, m.agg.Time(k).Seconds(), k.String(),
		)
	}
	for k := CreateBytesWritten; k < numByteKinds; k++ {
		ch <- prometheus.MustNewConstMetric(
			m.bytesDesc, prometheus.GaugeValue, float64(m.agg.Bytes(k)), k.String(),
		)
	}
	counts := m.agg.OpCounts()
	for op := tracefmt.FileOp(0); int(op) < len(counts); op++ {
		ch <- prometheus.MustNewConstMetric(
			m.opsDesc, prometheus.GaugeValue, float64(counts[op]), op.String(),
		)
	}
}
