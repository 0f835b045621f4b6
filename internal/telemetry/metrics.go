package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fencer",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"op", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fencer",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests.",
			// 1ms .. ~4s
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 13),
		},
		[]string{"op"},
	)

	InFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fencer",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
		[]string{"op"},
	)

	// ---- Gossip ----
	GossipRounds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fencer",
			Subsystem: "gossip",
			Name:      "rounds_total",
			Help:      "Completed gossip rounds.",
		},
	)

	GossipRoundDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fencer",
			Subsystem: "gossip",
			Name:      "round_duration_seconds",
			Help:      "Time from fan-out to the end of election in one round.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 13),
		},
	)

	PullsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fencer",
			Subsystem: "gossip",
			Name:      "pulls_total",
			Help:      "State pulls by result.",
		},
		[]string{"result"},
	)

	Members = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fencer",
			Subsystem: "gossip",
			Name:      "members",
			Help:      "Number of addresses in the local member list, self included.",
		},
	)

	// ---- Election ----
	IsLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fencer",
			Subsystem: "election",
			Name:      "is_leader",
			Help:      "Whether this node believes it is the leader (1=leader, 0=not).",
		},
	)

	LeaderChanges = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fencer",
			Subsystem: "election",
			Name:      "leader_changes_total",
			Help:      "Number of times the local leader slot changed.",
		},
	)

	ElectionsDeferred = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fencer",
			Subsystem: "election",
			Name:      "deferred_total",
			Help:      "Rounds where self-nomination waited for peer confirmation.",
		},
	)

	HookFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fencer",
			Subsystem: "election",
			Name:      "hook_failures_total",
			Help:      "Leadership-change hook invocations that returned an error or panicked.",
		},
	)

	// ---- Process / build info ----
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fencer",
			Name:      "build_info",
			Help:      "Build info (constant 1, labeled by version and git_sha).",
		},
		[]string{"version", "git_sha"},
	)

	startTime = time.Now()
	uptime    = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "fencer",
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds.",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)
)

func init() {
	Registry.MustRegister(
		RequestsTotal, RequestDuration, InFlight,
		GossipRounds, GossipRoundDuration, PullsTotal, Members,
		IsLeader, LeaderChanges, ElectionsDeferred, HookFailures,
		buildInfo, uptime,
	)
}

// MetricsHandler exposes /metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// SetBuildInfo should be called once at startup, e.g. with ldflags-provided values.
func SetBuildInfo(version, gitSHA string) {
	buildInfo.WithLabelValues(version, gitSHA).Set(1)
}

// ---- Middleware instrumentation ----

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Instrument wraps an http.Handler to record metrics under the provided "op" label.
func Instrument(op string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: 200}
		start := time.Now()

		InFlight.WithLabelValues(op).Inc()
		defer InFlight.WithLabelValues(op).Dec()

		next.ServeHTTP(sw, r)

		class := strconv.Itoa(sw.status/100) + "xx"
		RequestsTotal.WithLabelValues(op, class).Inc()
		RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	})
}
