package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	// Sample Metrics
	SamplesTotal        *prometheus.CounterVec
	BytesWritten        prometheus.Counter
	CommandDuration     *prometheus.HistogramVec
	CommandErrors       *prometheus.CounterVec
	LastSampleTimestamp prometheus.Gauge

	// Sink Metrics
	SinkSize      prometheus.Gauge
	SinkCreatedAt prometheus.Gauge

	// Host Metrics
	NetworkIO      *prometheus.GaugeVec
	NetworkPackets *prometheus.GaugeVec

	// Process Metrics
	ProcessMemory  *prometheus.GaugeVec
	ProcessFDs     prometheus.Gauge
	GoroutineCount prometheus.Gauge

	// Module Metrics
	CollectionDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SamplesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nstat_collector_samples_total",
				Help: "Total number of samples appended to the sink",
			},
			[]string{"kind"},
		),
		BytesWritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nstat_collector_bytes_written_total",
				Help: "Total number of bytes appended to the sink",
			},
		),
		CommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nstat_collector_command_duration_seconds",
				Help:    "Time spent waiting for the nstat command",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"kind"},
		),
		CommandErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nstat_collector_command_errors_total",
				Help: "Total number of failed command invocations",
			},
			[]string{"error_type"},
		),
		LastSampleTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nstat_collector_last_sample_timestamp_seconds",
				Help: "Acquisition time of the last timestamped sample",
			},
		),

		SinkSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nstat_collector_sink_size_bytes",
				Help: "Current size of the output file",
			},
		),
		SinkCreatedAt: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nstat_collector_sink_created_timestamp_seconds",
				Help: "Creation time of the output file as reported by the filesystem",
			},
		),

		NetworkIO: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nstat_host_network_io_bytes",
				Help: "Cumulative interface byte counters",
			},
			[]string{"interface", "direction"},
		),
		NetworkPackets: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nstat_host_network_packets",
				Help: "Cumulative interface packet counters",
			},
			[]string{"interface", "direction"},
		),

		ProcessMemory: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nstat_process_memory_bytes",
				Help: "Memory used by the collector process",
			},
			[]string{"type"},
		),
		ProcessFDs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nstat_process_open_fds",
				Help: "Open file descriptors of the collector process",
			},
		),
		GoroutineCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nstat_process_goroutines",
				Help: "Number of goroutines in the collector process",
			},
		),

		CollectionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nstat_module_collection_duration_seconds",
				Help:    "Time spent collecting module metrics",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
			},
			[]string{"module"},
		),
	}

	// Register all metrics
	reg.MustRegister(
		m.SamplesTotal,
		m.BytesWritten,
		m.CommandDuration,
		m.CommandErrors,
		m.LastSampleTimestamp,
		m.SinkSize,
		m.SinkCreatedAt,
		m.NetworkIO,
		m.NetworkPackets,
		m.ProcessMemory,
		m.ProcessFDs,
		m.GoroutineCount,
		m.CollectionDuration,
	)

	return m
}
