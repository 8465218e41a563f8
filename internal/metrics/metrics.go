// Package metrics defines the Prometheus metrics exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// httpRequests counts requests by route pattern, method and status.
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobfinder_http_requests_total",
		Help: "Total number of HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})

	// httpDuration tracks request latency by route pattern and method.
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobfinder_http_request_duration_seconds",
		Help:    "Histogram of HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobfinder_auth_logins_total",
		Help: "Total number of login attempts by outcome",
	}, []string{"outcome"})

	refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobfinder_auth_refreshes_total",
		Help: "Total number of refresh token rotations by outcome",
	}, []string{"outcome"})

	resetRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobfinder_auth_password_reset_requests_total",
		Help: "Total number of password reset requests by outcome",
	}, []string{"outcome"})

	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobfinder_notifications_total",
		Help: "Total number of notification events by type and outcome",
	}, []string{"type", "outcome"})
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// RecordLogin counts a login attempt.
func RecordLogin(outcome string) { logins.WithLabelValues(outcome).Inc() }

// RecordRefresh counts a refresh token rotation attempt.
func RecordRefresh(outcome string) { refreshes.WithLabelValues(outcome).Inc() }

// RecordResetRequest counts a password reset request.
func RecordResetRequest(outcome string) { resetRequests.WithLabelValues(outcome).Inc() }

// RecordNotification counts a published or consumed notification event.
func RecordNotification(eventType, outcome string) {
	notifications.WithLabelValues(eventType, outcome).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency. It must run inside the
// chi router so the route pattern is known after the handler returns.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
