package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcoot/miniapp-session/internal/middleware"
)

const namespace = "miniapp"

var (
	// Registry holds the session and handshake collectors.
	Registry = prometheus.NewRegistry()

	sessionResolves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "resolves_total",
			Help:      "Session resolve calls by outcome.",
		},
		[]string{"outcome"},
	)

	sessionResolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "resolve_duration_seconds",
			Help:      "Duration of session resolve calls.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)

	handshakeStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "starts_total",
			Help:      "Deep-link handshake start calls.",
		},
		[]string{"purpose", "success"},
	)

	handshakePolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "polls_total",
			Help:      "Deep-link handshake poll requests by result.",
		},
		[]string{"purpose", "result"},
	)

	handshakeResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "results_total",
			Help:      "Terminal handshake states.",
		},
		[]string{"purpose", "state"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Requests handled by the dev backend.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of dev backend requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		sessionResolves,
		sessionResolveDuration,
		handshakeStarts,
		handshakePolls,
		handshakeResults,
		httpRequests,
		httpDuration,
	)
}

// Handler returns an HTTP handler exposing the registered collectors.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordResolve records a session resolve call.
func RecordResolve(outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	sessionResolves.WithLabelValues(outcome).Inc()
	sessionResolveDuration.Observe(duration.Seconds())
}

// RecordHandshakeStart records a handshake start call.
func RecordHandshakeStart(purpose string, success bool) {
	handshakeStarts.WithLabelValues(purpose, strconv.FormatBool(success)).Inc()
}

// RecordPoll records one poll request.
func RecordPoll(purpose, result string) {
	handshakePolls.WithLabelValues(purpose, result).Inc()
}

// RecordHandshakeResult records a terminal poller state.
func RecordHandshakeResult(purpose, state string) {
	handshakeResults.WithLabelValues(purpose, state).Inc()
}

// Middleware records request metrics. Register it with Router.Use so the
// matched route template is available as the label.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := middleware.Wrap(w)
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := middleware.RouteTemplate(r)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}
