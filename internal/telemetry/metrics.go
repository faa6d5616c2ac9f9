package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsCreated       = prometheus.NewCounter(prometheus.CounterOpts{Name: "marketplace_jobs_created_total", Help: "Jobs created (single and bulk)"})
	JobsSearched      = prometheus.NewCounter(prometheus.CounterOpts{Name: "marketplace_searches_total", Help: "Job search queries served"})
	Applications      = prometheus.NewCounter(prometheus.CounterOpts{Name: "marketplace_applications_total", Help: "Applications submitted"})
	Accepts           = prometheus.NewCounter(prometheus.CounterOpts{Name: "marketplace_accepts_total", Help: "Applications accepted (jobs assigned)"})
	GuardRejections   = prometheus.NewCounter(prometheus.CounterOpts{Name: "marketplace_guard_rejections_total", Help: "Requests rejected by lifecycle guards (invalid state or conflict)"})
	BulkRowsOK        = prometheus.NewCounter(prometheus.CounterOpts{Name: "marketplace_bulk_rows_ok_total", Help: "Bulk operation rows applied"})
	BulkRowsFailed    = prometheus.NewCounter(prometheus.CounterOpts{Name: "marketplace_bulk_rows_failed_total", Help: "Bulk operation rows that failed"})
	BulkInFlight      = prometheus.NewGauge(prometheus.GaugeOpts{Name: "marketplace_bulk_inflight", Help: "Bulk operations currently processing"})
	CacheHits         = prometheus.NewCounter(prometheus.CounterOpts{Name: "marketplace_cache_hits_total", Help: "Read-through cache hits"})
	CacheMisses       = prometheus.NewCounter(prometheus.CounterOpts{Name: "marketplace_cache_misses_total", Help: "Read-through cache misses"})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsCreated,
			JobsSearched,
			Applications,
			Accepts,
			GuardRejections,
			BulkRowsOK,
			BulkRowsFailed,
			BulkInFlight,
			CacheHits,
			CacheMisses,
		)
	})
	return promhttp.Handler()
}
