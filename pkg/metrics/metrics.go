package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rsvp", Name: "submissions_total", Help: "RSVP submissions by outcome (created, rejected, failed)."},
		[]string{"outcome"},
	)
	SnapshotsDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "rsvp", Name: "snapshots_delivered_total", Help: "Full record snapshots handed to subscribers."},
	)
	ActiveSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "rsvp", Name: "active_subscriptions", Help: "Live subscriptions currently attached to the feed."},
	)
	ChangeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rsvp", Name: "change_events_total", Help: "Change notifications received by source."},
		[]string{"source"},
	)
	HandleInits = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rsvp", Name: "handle_inits_total", Help: "Store handle initialization attempts by result."},
		[]string{"result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(Submissions)
	reg.MustRegister(SnapshotsDelivered)
	reg.MustRegister(ActiveSubscriptions)
	reg.MustRegister(ChangeEvents)
	reg.MustRegister(HandleInits)
}
