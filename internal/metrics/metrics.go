// Package metrics - prometheus-коллекторы релея.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "presence_relay"

// StatsFunc отдаёт текущее число соединений и комнат.
type StatsFunc func() (connections, rooms int)

// Metrics безопасен для nil-получателя: вызовы просто игнорируются.
type Metrics struct {
	gatherer prometheus.Gatherer

	roomsCreated   prometheus.Counter
	roomsClosed    prometheus.Counter
	joins          prometheus.Counter
	leaves         prometheus.Counter
	updates        prometheus.Counter
	broadcasts     prometheus.Counter
	deliveryDrops  prometheus.Counter
	droppedInbound *prometheus.CounterVec
}

// New регистрирует коллекторы в собственном реестре (плюс go/process).
func New(stats StatsFunc) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
		reg.MustRegister(c)
		return c
	}

	m := &Metrics{
		gatherer:      reg,
		roomsCreated:  counter("rooms_created_total", "Rooms created by a first join."),
		roomsClosed:   counter("rooms_closed_total", "Rooms destroyed after the last member left."),
		joins:         counter("joins_total", "Applied join-session events."),
		leaves:        counter("leaves_total", "Members removed by leave or disconnect."),
		updates:       counter("location_updates_total", "Applied update-location events."),
		broadcasts:    counter("broadcasts_total", "Full-state broadcasts fanned out to a room."),
		deliveryDrops: counter("delivery_drops_total", "Per-recipient deliveries dropped during broadcast."),
		droppedInbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_events_total",
			Help:      "Inbound events dropped without mutating state.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.droppedInbound)

	if stats != nil {
		reg.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_connections",
				Help:      "Live real-time connections.",
			}, func() float64 {
				c, _ := stats()
				return float64(c)
			}),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_rooms",
				Help:      "Rooms with at least one member.",
			}, func() float64 {
				_, r := stats()
				return float64(r)
			}),
		)
	}

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) RoomCreated() {
	if m != nil {
		m.roomsCreated.Inc()
	}
}

func (m *Metrics) RoomClosed() {
	if m != nil {
		m.roomsClosed.Inc()
	}
}

func (m *Metrics) Joined() {
	if m != nil {
		m.joins.Inc()
	}
}

func (m *Metrics) Left() {
	if m != nil {
		m.leaves.Inc()
	}
}

func (m *Metrics) LocationUpdated() {
	if m != nil {
		m.updates.Inc()
	}
}

func (m *Metrics) Broadcast(dropped int) {
	if m == nil {
		return
	}
	m.broadcasts.Inc()
	if dropped > 0 {
		m.deliveryDrops.Add(float64(dropped))
	}
}

func (m *Metrics) Dropped(reason string) {
	if m != nil {
		m.droppedInbound.WithLabelValues(reason).Inc()
	}
}
