package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "frontdesk"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ReservationTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "reservation_transitions_total", Help: "Reservation lifecycle transitions by action and outcome."},
		[]string{"action", "outcome"}, // outcome: ok|rejected|error
	)
	SweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "noshow_sweep_runs_total", Help: "No-show sweep runs by result."},
		[]string{"result"}, // result: ok|failed|skipped
	)
	SweepReservations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "noshow_sweep_reservations_total", Help: "Reservations handled by the no-show sweep."},
		[]string{"outcome"}, // outcome: cancelled|failed
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cache_events_total", Help: "Response cache hits/misses."},
		[]string{"cache", "event"}, // event: hit|miss|set
	)
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "events_published_total", Help: "Reservation events sent to the broker."},
		[]string{"result"}, // result: ok|failed
	)
)

// InitRegistry returns a registry with every collector of this service.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ReservationTransitions, SweepRuns, SweepReservations, CacheEvents, EventsPublished)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveTransition(action, outcome string) {
	ReservationTransitions.WithLabelValues(action, outcome).Inc()
}

// ObserveSweep records one sweep run and its per-reservation outcomes.
func ObserveSweep(result string, cancelled, failed int) {
	SweepRuns.WithLabelValues(result).Inc()
	if cancelled > 0 {
		SweepReservations.WithLabelValues("cancelled").Add(float64(cancelled))
	}
	if failed > 0 {
		SweepReservations.WithLabelValues("failed").Add(float64(failed))
	}
}

func ObserveCache(cache, event string) { // event: hit|miss|set
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObservePublish(err error) {
	if err != nil {
		EventsPublished.WithLabelValues("failed").Inc()
		return
	}
	EventsPublished.WithLabelValues("ok").Inc()
}
