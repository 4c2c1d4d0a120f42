package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"recipehub/pkg/metrics"
)

// Metrics counts requests and records latency per route template.
func Metrics(m *metrics.ServerMetrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.Requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	}
}
