package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps Prometheus collectors for geofence-sentinel.
type Metrics struct {
	registry              *prometheus.Registry
	deliveriesTotal       *prometheus.CounterVec
	malformedEventsTotal  prometheus.Counter
	unknownZoneEvents     prometheus.Counter
	notificationsTotal    *prometheus.CounterVec
	armedZones            prometheus.Gauge
	positionsTotal        prometheus.Counter
	lastDeliveryTimestamp prometheus.Gauge
}

// New initializes a Metrics registry with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		deliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geofence_sentinel_deliveries_total",
			Help: "Total valid transition deliveries by kind.",
		}, []string{"kind"}),
		malformedEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geofence_sentinel_malformed_events_total",
			Help: "Total deliveries dropped as malformed.",
		}),
		unknownZoneEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geofence_sentinel_unknown_zone_events_total",
			Help: "Total transition events referencing an unknown zone.",
		}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geofence_sentinel_notifications_total",
			Help: "Total notifications by delivery result.",
		}, []string{"result"}),
		armedZones: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "geofence_sentinel_armed_zones",
			Help: "Number of zones currently armed.",
		}),
		positionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geofence_sentinel_positions_total",
			Help: "Total position fixes evaluated.",
		}),
		lastDeliveryTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "geofence_sentinel_last_delivery_timestamp",
			Help: "Unix timestamp of the last valid transition delivery.",
		}),
	}

	registry.MustRegister(
		m.deliveriesTotal,
		m.malformedEventsTotal,
		m.unknownZoneEvents,
		m.notificationsTotal,
		m.armedZones,
		m.positionsTotal,
		m.lastDeliveryTimestamp,
	)

	return m
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns a Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncDeliveries increments the delivery counter for kind.
func (m *Metrics) IncDeliveries(kind string) {
	if m == nil {
		return
	}
	m.deliveriesTotal.WithLabelValues(kind).Inc()
}

// IncMalformedEvents increments the malformed delivery counter.
func (m *Metrics) IncMalformedEvents() {
	if m == nil {
		return
	}
	m.malformedEventsTotal.Inc()
}

// IncUnknownZoneEvents increments the unknown zone counter.
func (m *Metrics) IncUnknownZoneEvents() {
	if m == nil {
		return
	}
	m.unknownZoneEvents.Inc()
}

// IncNotifications increments the notification counter for result ("sent" or "failed").
func (m *Metrics) IncNotifications(result string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(result).Inc()
}

// SetArmedZones sets the armed zone gauge.
func (m *Metrics) SetArmedZones(count int) {
	if m == nil {
		return
	}
	m.armedZones.Set(float64(count))
}

// IncPositions increments the evaluated position counter.
func (m *Metrics) IncPositions() {
	if m == nil {
		return
	}
	m.positionsTotal.Inc()
}

// SetLastDeliveryTimestamp sets the last delivery time.
func (m *Metrics) SetLastDeliveryTimestamp(t time.Time) {
	if m == nil {
		return
	}
	m.lastDeliveryTimestamp.Set(float64(t.Unix()))
}
