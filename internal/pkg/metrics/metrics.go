// Package metrics exports tick reports as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/anicoll/fancontrol/internal/pkg/model"
)

const namespace = "fancontrol"

// Metrics implements controller.Reporter. Updates are plain in-memory
// operations, so it is safe to run inside the control loop.
type Metrics struct {
	registry *prometheus.Registry

	ticksTotal      prometheus.Counter
	tickDuration    prometheus.Histogram
	sensorReading   *prometheus.GaugeVec
	readErrorsTotal *prometheus.CounterVec
	triggersTotal   *prometheus.CounterVec
	outputPercent   *prometheus.GaugeVec
	outputsTotal    *prometheus.CounterVec
	deviceOnline    *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Total evaluation ticks",
		}),

		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent binding, reading, computing and applying one tick",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),

		sensorReading: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sensor",
			Name:      "reading",
			Help:      "Last sensor reading in its own unit",
		}, []string{"device", "sensor", "unit"}),

		readErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sensor",
			Name:      "read_errors_total",
			Help:      "Failed sensor reads",
		}, []string{"device", "sensor"}),

		triggersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rule",
			Name:      "triggers_total",
			Help:      "Ticks in which a rule was triggered",
		}, []string{"rule"}),

		outputPercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "output",
			Name:      "percent",
			Help:      "Last applied output duty in percent",
		}, []string{"device", "output"}),

		outputsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "output",
			Name:      "writes_total",
			Help:      "Output writes by result",
		}, []string{"device", "output", "status"}),

		deviceOnline: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "device",
			Name:      "online",
			Help:      "1 if the device is online, 0 otherwise",
		}, []string{"device"}),
	}

	m.registry.MustRegister(
		m.ticksTotal,
		m.tickDuration,
		m.sensorReading,
		m.readErrorsTotal,
		m.triggersTotal,
		m.outputPercent,
		m.outputsTotal,
		m.deviceOnline,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Report(report *model.TickReport) {
	m.ticksTotal.Inc()
	m.tickDuration.Observe(report.Duration.Seconds())

	for _, name := range report.Online {
		m.deviceOnline.WithLabelValues(name).Set(1)
	}
	for _, name := range report.Offline {
		m.deviceOnline.WithLabelValues(name).Set(0)
	}

	for _, r := range report.Readings {
		if r.Failed() {
			m.readErrorsTotal.WithLabelValues(r.Device, r.Sensor).Inc()
			continue
		}
		m.sensorReading.WithLabelValues(r.Device, r.Sensor, r.Value.Unit().String()).Set(r.Value.Float())
	}
	for _, rule := range report.Triggered {
		m.triggersTotal.WithLabelValues(rule).Inc()
	}

	for _, out := range report.Outputs {
		m.outputsTotal.WithLabelValues(out.Device, out.Output, string(out.Status)).Inc()
		if out.Status == model.Applied {
			m.outputPercent.WithLabelValues(out.Device, out.Output).Set(float64(out.Percent.Int()))
		}
	}
}
