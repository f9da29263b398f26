package admin

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/crowirc/crowd/server"
)

var (
	requestDuration = promauto.With(server.Metrics).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crowd_admin_request_duration_seconds",
			Help:    "Admin endpoint request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	requestsTotal = promauto.With(server.Metrics).NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowd_admin_requests_total",
			Help: "Total admin endpoint requests by status code",
		},
		[]string{"path", "method", "code"},
	)
)

// requestMetrics records latency and status counts for every admin
// request. The route path is used as the label, not the raw URL, to keep
// cardinality bounded.
func requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		path := c.Path()
		method := c.Request().Method
		requestDuration.WithLabelValues(path, method).Observe(time.Since(start).Seconds())
		requestsTotal.WithLabelValues(path, method, strconv.Itoa(c.Response().Status)).Inc()
		return err
	}
}
