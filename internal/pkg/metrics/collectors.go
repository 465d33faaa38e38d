package metrics

import (
	"github.com/bissquit/statusboard/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecordDBPoolMetrics updates database pool metrics.
func RecordDBPoolMetrics(pool *pgxpool.Pool) {
	stats := pool.Stat()

	DBPoolConnections.WithLabelValues("in_use").Set(float64(stats.AcquiredConns()))
	DBPoolConnections.WithLabelValues("idle").Set(float64(stats.IdleConns()))
	DBPoolConnections.WithLabelValues("max").Set(float64(stats.MaxConns()))
}

// RecordServiceStatuses sets the per-status service gauge. Every status is written
// so a status that drops to zero services is reported as zero.
func RecordServiceStatuses(services []domain.Service) {
	counts := make(map[domain.ServiceStatus]int, len(domain.ServiceStatuses))
	for i := range services {
		counts[services[i].Status]++
	}
	for _, status := range domain.ServiceStatuses {
		ServicesByStatus.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
