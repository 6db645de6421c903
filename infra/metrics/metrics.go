// Package metrics exposes kennel counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kennel"

// Metrics owns a private registry so that several kennels (tests) never
// collide on the global one.
type Metrics struct {
	Registry *prometheus.Registry

	Inserts       prometheus.Counter
	Evictions     prometheus.Counter
	Rejected      *prometheus.CounterVec
	EventsDropped prometheus.Counter
	Published     prometheus.Counter
}

// Source is the live state sampled at scrape time.
type Source interface {
	Len() int
	Pending() int64
	Released() uint64
	GracePeriods() uint64
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Inserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "inserts_total",
			Help: "Dogs appended to the list.",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "evictions_total",
			Help: "Dogs removed from the head by the evictor.",
		}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "store_rejected_total",
			Help: "Write requests rejected, by reason.",
		}, []string{"reason"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_dropped_total",
			Help: "Eviction events dropped because the journal queue was full.",
		}),
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_published_total",
			Help: "Eviction events acknowledged by the broker.",
		}),
	}
	m.Registry.MustRegister(m.Inserts, m.Evictions, m.Rejected, m.EventsDropped, m.Published)
	return m
}

// Observe registers scrape-time collectors backed by src.
func (m *Metrics) Observe(src Source) {
	m.Registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "list_length",
			Help: "Dogs currently linked.",
		}, func() float64 { return float64(src.Len()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "reclaim_pending",
			Help: "Retired dogs waiting for a grace period.",
		}, func() float64 { return float64(src.Pending()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "reclaimed_total",
			Help: "Retired dogs released after a grace period.",
		}, func() float64 { return float64(src.Released()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "grace_periods_total",
			Help: "Completed grace periods.",
		}, func() float64 { return float64(src.GracePeriods()) }),
	)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
