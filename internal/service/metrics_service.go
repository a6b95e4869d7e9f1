package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	linesAccepted   prometheus.Counter
	linesThrottled  prometheus.Counter
	flagsFiled      prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	linesAccepted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "story_lines_accepted_total",
		Help: "Total accepted line contributions",
	})

	linesThrottled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "story_lines_throttled_total",
		Help: "Total line contributions rejected by the cooldown",
	})

	flagsFiled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "story_flags_filed_total",
		Help: "Total moderation flags filed",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, linesAccepted, linesThrottled, flagsFiled, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		linesAccepted:   linesAccepted,
		linesThrottled:  linesThrottled,
		flagsFiled:      flagsFiled,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records a completed request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	s.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, path, code).Inc()
}

// LineAccepted counts an accepted contribution.
func (s *MetricsService) LineAccepted() { s.linesAccepted.Inc() }

// LineThrottled counts a cooldown rejection.
func (s *MetricsService) LineThrottled() { s.linesThrottled.Inc() }

// FlagFiled counts a filed moderation flag.
func (s *MetricsService) FlagFiled() { s.flagsFiled.Inc() }
