package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	JiraRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jira_api_requests_total",
		Help: "Outbound Jira REST calls by endpoint and status.",
	}, []string{"endpoint", "status"})
)
