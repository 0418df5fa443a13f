// Package metrics exposes the control loop as Prometheus series.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ems"

// Metrics is safe to use through a nil pointer; every recorder is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	drawW       prometheus.Gauge
	targetW     prometheus.Gauge
	gapW        prometheus.Gauge
	devicesOff  prometheus.Gauge
	sheds       *prometheus.CounterVec
	restores    *prometheus.CounterVec
	sensorFault prometheus.Counter
	stepFailure prometheus.Counter
	stepSeconds prometheus.Histogram
}

// New registers all series on a private registry together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		drawW: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "power_draw_watts",
			Help: "Last measured household draw in watts.",
		}),
		targetW: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "power_target_watts",
			Help: "Configured power budget in watts.",
		}),
		gapW: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "power_gap_watts",
			Help: "Draw minus target; positive means over budget.",
		}),
		devicesOff: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "devices_off",
			Help: "Number of devices currently shed by the engine.",
		}),
		sheds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "shed_total",
			Help: "Devices turned off to meet the budget.",
		}, []string{"kind"}),
		restores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "restore_total",
			Help: "Devices turned back on.",
		}, []string{"kind"}),
		sensorFault: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sensor_faults_total",
			Help: "Cycles where the power sensor could not be read.",
		}),
		stepFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "step_failures_total",
			Help: "Cycles aborted by an error.",
		}),
		stepSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "step_duration_seconds",
			Help:    "Wall time of a control cycle including pacing waits.",
			Buckets: []float64{0.01, 0.1, 1, 10, 60, 180, 600, 1800},
		}),
	}
	m.registry.MustRegister(
		m.drawW, m.targetW, m.gapW, m.devicesOff,
		m.sheds, m.restores, m.sensorFault, m.stepFailure, m.stepSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveBudget(drawW, targetW, gapW float64) {
	if m == nil {
		return
	}
	m.drawW.Set(drawW)
	m.targetW.Set(targetW)
	m.gapW.Set(gapW)
}

func (m *Metrics) SetDevicesOff(n int) {
	if m == nil {
		return
	}
	m.devicesOff.Set(float64(n))
}

func (m *Metrics) Shed(kind string) {
	if m == nil {
		return
	}
	m.sheds.WithLabelValues(kind).Inc()
}

func (m *Metrics) Restore(kind string) {
	if m == nil {
		return
	}
	m.restores.WithLabelValues(kind).Inc()
}

func (m *Metrics) SensorFault() {
	if m == nil {
		return
	}
	m.sensorFault.Inc()
}

func (m *Metrics) StepFailed() {
	if m == nil {
		return
	}
	m.stepFailure.Inc()
}

func (m *Metrics) ObserveStep(d time.Duration) {
	if m == nil {
		return
	}
	m.stepSeconds.Observe(d.Seconds())
}
