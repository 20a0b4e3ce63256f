package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests            *prometheus.CounterVec
	CounterHandleRequestPanic  prometheus.Counter
	CounterRateLimitedRequests prometheus.Counter
	CounterFailedLogins        prometheus.Counter
	CounterCSRFRejected        prometheus.Counter
	CounterSetsLogged          prometheus.Counter
	CounterSetsDeleted         prometheus.Counter
	CounterFoodLogUpdates      prometheus.Counter
	CounterNutritionUpdates    prometheus.Counter
	CounterActivities          prometheus.Counter
	CounterSnapshotCacheHits   prometheus.Counter
	CounterSnapshotCacheMisses prometheus.Counter

	// gauges
	GaugeRequests   prometheus.Gauge
	GaugeLifeSignal prometheus.Gauge

	// histograms
	HistogramRequestDuration *prometheus.HistogramVec
}

func NewTestManager() *Manager {
	return NewManager("fittrack", "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("fittrack", "test_server", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	newCounter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})

	gaugeRequests := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "current_requests",
		Help:      "Current number of requests served",
	})
	gaugeLifeSignal := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "life_signal",
		Help:      "Shows whether the service is alive",
	})

	histogramRequestDuration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "Histogram of response time for requests in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"route", "method", "status_code"})

	return &Manager{
		CounterRequests:            counterRequests,
		CounterHandleRequestPanic:  newCounter("handle_request_panic", "The total number of serve request panics"),
		CounterRateLimitedRequests: newCounter("rate_limited_requests", "The total number of rate limited requests"),
		CounterFailedLogins:        newCounter("failed_logins", "The total number of failed login attempts"),
		CounterCSRFRejected:        newCounter("csrf_rejected", "The total number of requests rejected by the CSRF check"),
		CounterSetsLogged:          newCounter("workout_sets_logged", "The total number of logged workout sets"),
		CounterSetsDeleted:         newCounter("workout_sets_deleted", "The total number of deleted workout sets"),
		CounterFoodLogUpdates:      newCounter("food_log_updates", "The total number of food log saves"),
		CounterNutritionUpdates:    newCounter("nutrition_updates", "The total number of nutrition deltas applied"),
		CounterActivities:          newCounter("activities", "The total number of added activities"),
		CounterSnapshotCacheHits:   newCounter("snapshot_cache_hits", "GET /api/data served from cache"),
		CounterSnapshotCacheMisses: newCounter("snapshot_cache_misses", "GET /api/data built from the store"),
		GaugeRequests:              gaugeRequests,
		GaugeLifeSignal:            gaugeLifeSignal,
		HistogramRequestDuration:   histogramRequestDuration,
	}
}
