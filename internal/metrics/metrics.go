package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	selections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_selections_total",
		Help: "Responses selected, by rule topic",
	}, []string{"topic"})

	selectionFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assistant_selection_failures_total",
		Help: "Selection faults answered with the apology",
	})

	chatRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_chat_requests_total",
		Help: "Chat turns handled, by transport",
	}, []string{"transport"})

	selectLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "assistant_select_latency_us",
		Help:    "Latency of a selection in microseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 5000},
	})

	contactSubmissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_contact_submissions_total",
		Help: "Contact form submissions, by outcome",
	}, []string{"outcome"})

	analyticsEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_analytics_events_total",
		Help: "Analytics events tracked, by category",
	}, []string{"category"})

	gameScore = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assistant_game_points_total",
		Help: "Points awarded across all game sessions",
	})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(Collectors()...)
	})
}

// ObserveSelection records the topic of a selected response and how long
// selection took.
func ObserveSelection(topic string, start time.Time) {
	ensureRegistered()
	selections.WithLabelValues(topic).Inc()
	selectLatency.Observe(float64(time.Since(start).Microseconds()))
}

// IncSelectionFailure counts a contained selection fault.
func IncSelectionFailure() {
	ensureRegistered()
	selectionFailures.Inc()
}

// IncChatRequest counts one chat turn on a transport ("web", "telegram", "cli").
func IncChatRequest(transport string) {
	ensureRegistered()
	chatRequests.WithLabelValues(transport).Inc()
}

// IncContact records a contact submission outcome.
func IncContact(outcome string) {
	ensureRegistered()
	contactSubmissions.WithLabelValues(outcome).Inc()
}

// IncAnalyticsEvent counts a tracked analytics event.
func IncAnalyticsEvent(category string) {
	ensureRegistered()
	analyticsEvents.WithLabelValues(category).Inc()
}

// AddGamePoints adds awarded points. Negative values are ignored.
func AddGamePoints(points int) {
	ensureRegistered()
	if points > 0 {
		gameScore.Add(float64(points))
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	ensureRegistered()
	return promhttp.Handler()
}

// Collectors exposes all collectors for registration with a custom registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		selections, selectionFailures, chatRequests, selectLatency,
		contactSubmissions, analyticsEvents, gameScore,
	}
}
