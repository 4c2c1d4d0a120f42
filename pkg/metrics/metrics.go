package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	Requests          *prometheus.CounterVec
	LatencyMS         *prometheus.HistogramVec
	ShoppingListLines prometheus.Histogram
	Downloads         *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// so repeated construction does not panic on duplicate registration.
func New(reg *prometheus.Registry) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recipehub",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "method", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "recipehub",
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})
	lines := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "recipehub",
		Subsystem: "shopping_list",
		Name:      "entries",
		Help:      "Distinct ingredients per generated shopping list.",
		Buckets:   prometheus.LinearBuckets(0, 5, 10),
	})
	downloads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recipehub",
		Subsystem: "shopping_list",
		Name:      "downloads_total",
		Help:      "Shopping list documents served, by transport.",
	}, []string{"transport"})

	reg.MustRegister(requests, latency, lines, downloads)
	return &ServerMetrics{
		Requests:          requests,
		LatencyMS:         latency,
		ShoppingListLines: lines,
		Downloads:         downloads,
		gatherer:          reg,
	}
}

// ObserveShoppingList is nil-safe so callers can run without metrics.
func (m *ServerMetrics) ObserveShoppingList(transport string, entries int) {
	if m == nil {
		return
	}
	m.Downloads.WithLabelValues(transport).Inc()
	m.ShoppingListLines.Observe(float64(entries))
}

func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
