// Package metrics collects per-run Prometheus metrics. newtboot is a
// one-shot CLI, so metrics are written to a node_exporter textfile at the
// end of a run instead of being served.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation results
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the run collectors on a private registry. All methods are
// safe on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	deviceOperations *prometheus.CounterVec
	phaseDuration    *prometheus.GaugeVec
	probes           *prometheus.CounterVec
	devices          prometheus.Gauge
	lastRunSuccess   prometheus.Gauge
	lastRunTimestamp prometheus.Gauge
}

// New creates and registers the run collectors
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.deviceOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newtboot_device_operations_total",
			Help: "Device operations by phase and result",
		},
		[]string{"phase", "result"},
	)

	m.phaseDuration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "newtboot_phase_duration_seconds",
			Help: "Wall time spent in each bootstrap phase during the last run",
		},
		[]string{"phase"},
	)

	m.probes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newtboot_probe_total",
			Help: "Point-to-point reachability probes by result",
		},
		[]string{"result"},
	)

	m.devices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "newtboot_devices",
			Help: "Number of devices in the last run",
		},
	)

	m.lastRunSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "newtboot_last_run_success",
			Help: "1 if the last run completed without failed devices",
		},
	)

	m.lastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "newtboot_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		},
	)

	m.registry.MustRegister(
		m.deviceOperations,
		m.phaseDuration,
		m.probes,
		m.devices,
		m.lastRunSuccess,
		m.lastRunTimestamp,
	)
	return m
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveOperation counts one device operation in phase
func (m *Metrics) ObserveOperation(phase string, err error) {
	if m == nil {
		return
	}
	m.deviceOperations.WithLabelValues(phase, result(err == nil)).Inc()
}

// ObservePhase records how long phase took
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Set(d.Seconds())
}

// ObserveProbe counts one reachability probe
func (m *Metrics) ObserveProbe(success bool) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(result(success)).Inc()
}

// ObserveRun records the outcome of a finished run
func (m *Metrics) ObserveRun(devices int, success bool, finished time.Time) {
	if m == nil {
		return
	}
	m.devices.Set(float64(devices))
	if success {
		m.lastRunSuccess.Set(1)
	} else {
		m.lastRunSuccess.Set(0)
	}
	m.lastRunTimestamp.Set(float64(finished.Unix()))
}

// WriteTextfile writes the metrics in text exposition format to path,
// creating its directory. The write is atomic.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}
