// Package metrics holds the Prometheus collectors of the availability service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"resource-availability-backend/internal/rows"
)

type Metrics struct {
	RowOperations  *prometheus.CounterVec
	Registrations  *prometheus.CounterVec
	PollCycles     *prometheus.CounterVec
	FeedEvents     *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RowOperations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "availability",
				Name:      "row_operations_total",
				Help:      "Row operations pushed to consumers, by operation",
			},
			[]string{"operation"},
		),
		Registrations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "availability",
				Name:      "registrations_total",
				Help:      "Resource registrations, by path and outcome",
			},
			[]string{"path", "outcome"},
		),
		PollCycles: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "availability",
				Name:      "poll_cycles_total",
				Help:      "Upstream poll cycles, by outcome",
			},
			[]string{"outcome"},
		),
		FeedEvents: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "availability",
				Name:      "feed_resources_total",
				Help:      "Resources published on the change feed, by kind",
			},
			[]string{"kind"},
		),
		ActiveSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "availability",
				Name:      "active_sessions",
				Help:      "Open data source sessions",
			},
		),
	}
}

// ObserveRegistration records the outcome of a Register call. An empty result means the state was stale.
func (m *Metrics) ObserveRegistration(path string, result []rows.Row) {
	outcome := "accepted"
	if len(result) == 0 {
		outcome = "stale"
	}
	m.Registrations.WithLabelValues(path, outcome).Inc()
}

// WrapUpdater counts the operations passing through u.
func (m *Metrics) WrapUpdater(u rows.Updater) rows.Updater {
	return &countingUpdater{next: u, ops: m.RowOperations}
}

type countingUpdater struct {
	next rows.Updater
	ops  *prometheus.CounterVec
}

func (c *countingUpdater) AddRow(row rows.Row) {
	c.ops.WithLabelValues("add").Inc()
	c.next.AddRow(row)
}

func (c *countingUpdater) UpdateRow(row rows.Row) {
	c.ops.WithLabelValues("update").Inc()
	c.next.UpdateRow(row)
}

func (c *countingUpdater) RemoveRow(key string) {
	c.ops.WithLabelValues("remove").Inc()
	c.next.RemoveRow(key)
}
