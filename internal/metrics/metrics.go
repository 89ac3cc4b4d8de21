package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clinic_console",
		Name:      "upstream_requests_total",
		Help:      "Requests sent to the clinical API by method and status code.",
	}, []string{"method", "status"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "clinic_console",
		Name:      "upstream_request_duration_seconds",
		Help:      "Latency of clinical API requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clinic_console",
		Name:      "logins_total",
		Help:      "Console login attempts by outcome.",
	}, []string{"outcome"})

	ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clinic_console",
		Name:      "lab_import_rows_total",
		Help:      "Lab import rows processed by outcome.",
	}, []string{"outcome"})

	ImportRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "clinic_console",
		Name:      "lab_import_runs_total",
		Help:      "Completed lab import runs.",
	})

	ActiveImports = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "clinic_console",
		Name:      "lab_import_active",
		Help:      "Lab imports currently running.",
	})
)

// ObserveUpstream records one API round trip. status 0 means no response.
func ObserveUpstream(method string, status int, elapsed time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	UpstreamRequests.WithLabelValues(method, code).Inc()
	UpstreamDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveImportRow counts one processed row.
func ObserveImportRow(ok bool) {
	if ok {
		ImportRows.WithLabelValues("success").Inc()
		return
	}
	ImportRows.WithLabelValues("fail").Inc()
}
