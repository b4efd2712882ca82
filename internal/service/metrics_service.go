package service

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the bot
// pipeline and the HTTP surface.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	routeTotal      *prometheus.CounterVec
	providerTotal   *prometheus.CounterVec
	sendTotal       *prometheus.CounterVec
	turnDuration    prometheus.Histogram
	queueDepth      prometheus.Gauge
}

// NewMetricsService registers the collectors.
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

	routeTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_routes_total",
		Help: "Inbound messages by classified route and outcome",
	}, []string{"route", "outcome"})

	providerTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "classifier_provider_results_total",
		Help: "Classifier completions by provider and result",
	}, []string{"provider", "result"})

	sendTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbound_messages_total",
		Help: "Outbound channel messages by kind and result",
	}, []string{"kind", "result"})

	turnDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bot_turn_duration_seconds",
		Help:    "End-to-end processing time for one inbound message",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "webhook_queue_depth",
		Help: "Inbound events waiting to be processed",
	})

	registry.MustRegister(requestDuration, requestTotal, routeTotal, providerTotal, sendTotal, turnDuration, queueDepth)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		routeTotal:      routeTotal,
		providerTotal:   providerTotal,
		sendTotal:       sendTotal,
		turnDuration:    turnDuration,
		queueDepth:      queueDepth,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	return m.handler
}

// ObserveRequest records one HTTP request.
func (m *MetricsService) ObserveRequest(method, path, status string, duration time.Duration) {
	m.requestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, status).Inc()
}

// CountRoute records one processed message by route and outcome.
func (m *MetricsService) CountRoute(route, outcome string) {
	m.routeTotal.WithLabelValues(route, outcome).Inc()
}

// CountProvider records one classifier provider attempt.
func (m *MetricsService) CountProvider(provider, result string) {
	m.providerTotal.WithLabelValues(provider, result).Inc()
}

// CountSend records one outbound message attempt.
func (m *MetricsService) CountSend(kind, result string) {
	m.sendTotal.WithLabelValues(kind, result).Inc()
}

// ObserveTurn records the duration of one full message turn.
func (m *MetricsService) ObserveTurn(duration time.Duration) {
	m.turnDuration.Observe(duration.Seconds())
}

// SetQueueDepth tracks the webhook backlog.
func (m *MetricsService) SetQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}
