package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bitacora",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bitacora",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	recordsLogged = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bitacora",
		Name:      "records_logged_total",
		Help:      "Compliance records logged, by status and duplicate flag.",
	}, []string{"status", "duplicate"})

	reportsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bitacora",
		Name:      "reports_generated_total",
		Help:      "Reports generated, by format.",
	}, []string{"format"})
)

func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)
		// let the error handler write the response so the final status is known
		if err != nil {
			ctx.Error(err)
		}

		route, method := ctx.Path(), ctx.Request().Method
		requestsTotal.WithLabelValues(route, method, strconv.Itoa(ctx.Response().Status)).Inc()
		requestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
		return nil
	}
}
