package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Crawler metrics
	CrawlsTotal    *prometheus.CounterVec
	CrawlDuration  prometheus.Histogram
	ArticlesStored prometheus.Counter

	// Task queue metrics
	TasksEnqueued *prometheus.CounterVec
	TasksFailed   *prometheus.CounterVec

	// Configuration store metrics
	ConfigReads  prometheus.Counter
	ConfigWrites prometheus.Counter
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		CrawlsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "news_aggregator_crawls_total",
			Help: "Total number of source crawls by outcome",
		}, []string{"status"}), // status: "completed" or "failed"

		CrawlDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "news_aggregator_crawl_duration_seconds",
			Help:    "Source crawl latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		ArticlesStored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "news_aggregator_articles_stored_total",
			Help: "Total number of articles stored by the crawler",
		}),

		TasksEnqueued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "news_aggregator_tasks_enqueued_total",
			Help: "Total number of background tasks enqueued by type",
		}, []string{"type"}),

		TasksFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "news_aggregator_tasks_failed_total",
			Help: "Total number of background tasks that failed by type",
		}, []string{"type"}),

		ConfigReads: promauto.NewCounter(prometheus.CounterOpts{
			Name: "news_aggregator_config_reads_total",
			Help: "Total number of configuration store reads",
		}),

		ConfigWrites: promauto.NewCounter(prometheus.CounterOpts{
			Name: "news_aggregator_config_writes_total",
			Help: "Total number of configuration store writes",
		}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance, or nil if not initialized
func GetMetrics() *Metrics {
	return globalMetrics
}
