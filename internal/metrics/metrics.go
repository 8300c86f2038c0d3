// Package metrics exposes the relay's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons for EventsDropped.
const (
	ReasonNotTracker = "not_tracker"
	ReasonNoRoom     = "no_room"
	ReasonMalformed  = "malformed"
	ReasonUnknown    = "unknown_event"
	ReasonNotHolder  = "not_holder"
)

// UnknownEvent stands in for event names the relay does not know, so clients
// cannot mint label values.
const UnknownEvent = "unknown"

// InvalidRole labels rejected joins whose role is neither tracker nor tracked.
const InvalidRole = "invalid"

var (
	RoomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "geosync_rooms_active",
			Help: "Rooms currently holding at least one role",
		},
	)

	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "geosync_connections_active",
			Help: "Open websocket connections registered with the relay",
		},
	)

	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geosync_events_received_total",
			Help: "Events received from clients",
		},
		[]string{"event"},
	)

	EventsRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geosync_events_relayed_total",
			Help: "Events delivered to room members, counted per recipient",
		},
		[]string{"event"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geosync_events_dropped_total",
			Help: "Inbound events ignored by the relay",
		},
		[]string{"event", "reason"},
	)

	JoinsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geosync_joins_rejected_total",
			Help: "joinRoom requests answered with an error",
		},
		[]string{"role"},
	)

	SendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geosync_send_failures_total",
			Help: "Outbound events that could not be queued; the connection is closed",
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
