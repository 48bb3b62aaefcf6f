package observability

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const routeOther = "other"

// Auth rejection reasons.
const (
	AuthMissingKey        = "missing_key"
	AuthUnknownKey        = "unknown_key"
	AuthUnsupportedScheme = "unsupported_scheme"
)

var knownRoutes = map[string]struct{}{
	"/v1/health":         {},
	"/v1/ready":          {},
	"/v1/metrics":        {},
	"/v1/schema":         {},
	"/v1/schema/refresh": {},
	"/v1/examples":       {},
	"/v1/query/generate": {},
	"/v1/query/validate": {},
	"/v1/query/execute":  {},
	"/v1/ask":            {},
}

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlscribe_http_requests_total",
			Help: "Total number of API requests by route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlscribe_http_request_duration_seconds",
			Help:    "API request latency by route. Ask and generate include the completion call.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"method", "route", "status"},
	)

	authRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlscribe_auth_rejections_total",
			Help: "Total number of API requests rejected before reaching a handler, by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDurationSeconds, authRejectionsTotal)
}

// routeLabel maps paths outside the API surface to "other".
func routeLabel(path string) string {
	path = strings.TrimSuffix(path, "/")
	if _, ok := knownRoutes[path]; ok {
		return path
	}
	return routeOther
}

func ObserveAuthRejection(reason string) {
	authRejectionsTotal.WithLabelValues(reason).Inc()
}
