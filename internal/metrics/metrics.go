package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "merchant_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "merchant_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "route"})

	payoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "merchant_payouts_total",
		Help: "Payouts accepted by the service, by resulting status",
	}, []string{"status", "currency"})

	payoutRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "merchant_payout_rejections_total",
		Help: "Payout requests rejected before a payout was recorded",
	}, []string{"reason"})
)

// Middleware records request count and latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		route := c.Route().Path
		method := c.Method()
		httpReqTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		httpLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}

// PayoutCreated counts a recorded payout.
func PayoutCreated(status, currency string) {
	payoutsTotal.WithLabelValues(status, currency).Inc()
}

// PayoutRejected counts a payout request that failed before being recorded.
func PayoutRejected(reason string) {
	payoutRejections.WithLabelValues(reason).Inc()
}
