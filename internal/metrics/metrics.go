// Package metrics exposes controller counters and gauges for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sensor labels for SensorErrors.
const (
	SensorMoisture = "moisture"
	SensorAmbient  = "ambient"
)

// Metrics holds every collector, registered on its own registry.
type Metrics struct {
	reg *prometheus.Registry

	WateringStarts   prometheus.Counter
	CeilingTrips     prometheus.Counter
	SensorErrors     *prometheus.CounterVec
	PumpErrors       prometheus.Counter
	EdgesDropped     prometheus.Counter
	HTTPRequests     *prometheus.CounterVec
	TelemetryDropped prometheus.Counter

	Moisture      prometheus.Gauge
	OutsideTemp   prometheus.Gauge
	PumpActive    prometheus.Gauge
	PumpRunning   prometheus.Gauge
	Attempts      prometheus.Gauge
	MQTTConnected prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		WateringStarts: f.NewCounter(prometheus.CounterOpts{
			Name: "irrigator_watering_starts_total",
			Help: "Watering cycles started.",
		}),
		CeilingTrips: f.NewCounter(prometheus.CounterOpts{
			Name: "irrigator_retry_ceiling_trips_total",
			Help: "Times the pump was disabled after repeated dry re-measurements.",
		}),
		SensorErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "irrigator_sensor_errors_total",
			Help: "Failed sensor reads by sensor.",
		}, []string{"sensor"}),
		PumpErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "irrigator_pump_errors_total",
			Help: "Errors switching the pump output.",
		}),
		EdgesDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "irrigator_button_edges_dropped_total",
			Help: "Button edges discarded because the queue was full.",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "irrigator_http_requests_total",
			Help: "Config API requests by path and status code.",
		}, []string{"path", "code"}),
		TelemetryDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "irrigator_telemetry_dropped_total",
			Help: "Telemetry messages lost to buffer overflow.",
		}),
		Moisture: f.NewGauge(prometheus.GaugeOpts{
			Name: "irrigator_soil_moisture_percent",
			Help: "Latest soil moisture reading.",
		}),
		OutsideTemp: f.NewGauge(prometheus.GaugeOpts{
			Name: "irrigator_outside_temperature_celsius",
			Help: "Latest ambient temperature reading.",
		}),
		PumpActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "irrigator_pump_enabled",
			Help: "1 when automatic watering is enabled.",
		}),
		PumpRunning: f.NewGauge(prometheus.GaugeOpts{
			Name: "irrigator_pump_running",
			Help: "1 while a watering cycle is in progress.",
		}),
		Attempts: f.NewGauge(prometheus.GaugeOpts{
			Name: "irrigator_watering_attempts",
			Help: "Consecutive dry watering attempts in the current enabled cycle.",
		}),
		MQTTConnected: f.NewGauge(prometheus.GaugeOpts{
			Name: "irrigator_mqtt_connected",
			Help: "1 when the telemetry broker is connected.",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Bool converts a flag to a gauge value.
func Bool(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
