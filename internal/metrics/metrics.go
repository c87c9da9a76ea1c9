package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	APIRequests    *prometheus.CounterVec
	APIErrors      *prometheus.CounterVec
	RequestSeconds *prometheus.HistogramVec
	WeatherFetches *prometheus.CounterVec
	ActiveWorkers  prometheus.Gauge
	Searches       *prometheus.CounterVec
	ArchivedRows   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		APIRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "stratus_api_requests_total",
			Help: "Total number of requests sent to the weather backend, by operation and status code.",
		}, []string{"operation", "status"}),
		APIErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "stratus_api_errors_total",
			Help: "Total number of failed backend requests, by operation.",
		}, []string{"operation"}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stratus_api_request_duration_seconds",
			Help:    "Duration of requests to the weather backend.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		WeatherFetches: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "stratus_weather_fetches_total",
			Help: "Total number of per-location weather fetches, by outcome.",
		}, []string{"outcome"}),
		ActiveWorkers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "stratus_active_fetch_workers",
			Help: "Current number of workers fetching weather.",
		}),
		Searches: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "stratus_searches_total",
			Help: "Total number of location searches, by outcome.",
		}, []string{"outcome"}),
		ArchivedRows: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "stratus_archived_snapshots_total",
			Help: "Total number of weather snapshots written to the archive.",
		}),
	}
}
