// Package metrics exposes game counters to Prometheus. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "geoduel"

type Metrics struct {
	registry *prometheus.Registry

	roomsActive     prometheus.Gauge
	connections     prometheus.Gauge
	roundsCompleted *prometheus.CounterVec
	gamesFinished   *prometheus.CounterVec
	rematches       prometheus.Counter
	rejected        *prometheus.CounterVec
	persistFailures prometheus.Counter
	eventsDropped   prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		roomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Rooms currently held by the registry.",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Open game connections.",
		}),
		roundsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_completed_total",
			Help:      "Rounds completed, by trigger (guesses or deadline).",
		}, []string{"trigger"}),
		gamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Games that reached game over, by outcome (win or tie).",
		}, []string{"outcome"}),
		rematches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rematches_total",
			Help:      "Rematches agreed by both players.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_rejected_total",
			Help:      "Player requests rejected, by error code.",
		}, []string{"code"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Finished games that could not be written to the store.",
		}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Outbound events dropped because a connection fell behind.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.roomsActive,
		m.connections,
		m.roundsCompleted,
		m.gamesFinished,
		m.rematches,
		m.rejected,
		m.persistFailures,
		m.eventsDropped,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RoomOpened() {
	if m != nil {
		m.roomsActive.Inc()
	}
}

func (m *Metrics) RoomClosed() {
	if m != nil {
		m.roomsActive.Dec()
	}
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) RoundCompleted(trigger string) {
	if m != nil {
		m.roundsCompleted.WithLabelValues(trigger).Inc()
	}
}

func (m *Metrics) GameFinished(tie bool) {
	if m == nil {
		return
	}
	outcome := "win"
	if tie {
		outcome = "tie"
	}
	m.gamesFinished.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Rematch() {
	if m != nil {
		m.rematches.Inc()
	}
}

func (m *Metrics) Rejected(code string) {
	if m != nil {
		m.rejected.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) PersistFailed() {
	if m != nil {
		m.persistFailures.Inc()
	}
}

func (m *Metrics) EventDropped() {
	if m != nil {
		m.eventsDropped.Inc()
	}
}
