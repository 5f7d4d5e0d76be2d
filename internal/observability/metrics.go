// Package observability holds the application's Prometheus collectors.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhub_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feedhub_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ImageCleanupTotal counts background image-file deletions by outcome.
	ImageCleanupTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhub_image_cleanup_total",
		Help: "Total number of image cleanup attempts by outcome",
	}, []string{"outcome"})

	// ImageUploadsTotal counts image uploads by result.
	ImageUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhub_image_uploads_total",
		Help: "Total number of image uploads by result",
	}, []string{"result"})

	// AuthAttemptsTotal counts login/signup attempts by operation and result.
	AuthAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhub_auth_attempts_total",
		Help: "Total number of authentication attempts by operation and result",
	}, []string{"operation", "result"})
)

const queryStartKey = "observability:query_start"

// RegisterQueryMetrics instruments a gorm connection so every statement
// records its latency in DatabaseQueryLatency, labeled by operation and table.
func RegisterQueryMetrics(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(queryStartKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			value, ok := tx.InstanceGet(queryStartKey)
			if !ok {
				return
			}
			start, ok := value.(time.Time)
			if !ok {
				return
			}
			DatabaseQueryLatency.
				WithLabelValues(operation, tx.Statement.Table).
				Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("metrics:create_start", before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("metrics:create_done", after("create")); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("metrics:query_start", before); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("metrics:query_done", after("query")); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("metrics:update_start", before); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("metrics:update_done", after("update")); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("metrics:delete_start", before); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("metrics:delete_done", after("delete")); err != nil {
		return err
	}
	return nil
}
