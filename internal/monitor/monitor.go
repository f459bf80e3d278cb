// Package monitor exposes Prometheus metrics for the analysis pipeline
// and the server process on a dedicated port.
package monitor

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/process"

	"signserver/internal/logger"
)

const sampleInterval = 5 * time.Second

// Monitor owns the metrics registry and the process gauges.
type Monitor struct {
	registry *prometheus.Registry

	analysesTotal    prometheus.Counter
	detectionsTotal  prometheus.Counter
	errorsTotal      prometheus.Counter
	analysisDuration prometheus.Gauge
	memGauge         prometheus.Gauge
	cpuGauge         prometheus.Gauge

	logger *logger.Logger
}

// New creates a Monitor with its own registry.
func New(logger *logger.Logger) *Monitor {
	m := &Monitor{
		registry: prometheus.NewRegistry(),
		analysesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analyses_total",
			Help: "Number of completed analyses.",
		}),
		detectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detections_total",
			Help: "Number of detections across all analyses.",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analysis_errors_total",
			Help: "Number of failed analyses.",
		}),
		analysisDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "analysis_duration_ms",
			Help: "Duration of the most recent analysis in milliseconds.",
		}),
		memGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "process_mem_mb",
			Help: "Resident memory of the server process in MB.",
		}),
		cpuGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "process_cpu_percent",
			Help: "CPU usage of the server process in percent.",
		}),
		logger: logger,
	}

	m.registry.MustRegister(
		m.analysesTotal,
		m.detectionsTotal,
		m.errorsTotal,
		m.analysisDuration,
		m.memGauge,
		m.cpuGauge,
	)

	return m
}

// RecordAnalysis updates the counters after one completed pipeline run.
func (m *Monitor) RecordAnalysis(detections int, duration time.Duration) {
	m.analysesTotal.Inc()
	m.detectionsTotal.Add(float64(detections))
	m.analysisDuration.Set(float64(duration.Milliseconds()))
}

// RecordError counts a failed analysis.
func (m *Monitor) RecordError() {
	m.errorsTotal.Inc()
}

// Handler returns the /metrics handler for the registry.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Run samples process gauges and serves /metrics until the process exits.
func (m *Monitor) Run(port int) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.logger.Error("Could not attach process monitor: %v", err)
	} else {
		go m.sample(proc)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	m.logger.Info("Monitor listening on :%d", port)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
		m.logger.Error("Monitor server error: %v", err)
	}
}

func (m *Monitor) sample(proc *process.Process) {
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	for {
		<-ticker.C
		if memInfo, err := proc.MemoryInfo(); err == nil {
			m.memGauge.Set(float64(memInfo.RSS) / 1024 / 1024)
		}
		if cpu, err := proc.CPUPercent(); err == nil {
			m.cpuGauge.Set(cpu)
		}
	}
}
