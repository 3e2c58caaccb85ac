// Package metrics holds the dashboard's Prometheus collectors.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	StreamConnects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "augur_stream_connects_total", Help: "push channel connections opened",
	})
	StreamLost = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "augur_stream_lost_total", Help: "push channel connections lost or refused",
	})
	StreamMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "augur_stream_messages_total", Help: "push channel messages by outcome",
	}, []string{"outcome"})

	MatchTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "augur_match_transitions_total", Help: "current match transitions by kind",
	}, []string{"kind"})
	MatchActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "augur_match_active", Help: "1 while a match is in flight",
	})

	Polls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "augur_polls_total", Help: "view refreshes by view and outcome",
	}, []string{"view", "outcome"})
	PollsOutOfOrder = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "augur_polls_out_of_order_total", Help: "refreshes applied after a newer one had already landed",
	}, []string{"view"})
	QueueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "augur_queue_size", Help: "players in the last queue snapshot",
	})

	Reports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "augur_reports_total", Help: "match result submissions by outcome",
	}, []string{"outcome"})
)

var once sync.Once

// Init registers every collector with the default registry. Safe to call twice.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(StreamConnects, StreamLost, StreamMessages,
			MatchTransitions, MatchActive, Polls, PollsOutOfOrder, QueueSize, Reports)
	})
}
