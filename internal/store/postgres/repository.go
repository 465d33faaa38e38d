// Package postgres provides PostgreSQL implementation of the entity store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements store.Repository using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	db   querier
}

var _ store.Repository = (*Repository)(nil)

// NewRepository creates a new PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

const serviceColumns = `id, name, description, category, region, type, status, icon, address, port, updated_at`

func scanService(row pgx.Row) (*domain.Service, error) {
	var svc domain.Service
	err := row.Scan(
		&svc.ID,
		&svc.Name,
		&svc.Description,
		&svc.Category,
		&svc.Region,
		&svc.Type,
		&svc.Status,
		&svc.Icon,
		&svc.Address,
		&svc.Port,
		&svc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	svc.UpdatedAt = svc.UpdatedAt.UTC()
	return &svc, nil
}

// ListServices retrieves all services ordered by name.
func (r *Repository) ListServices(ctx context.Context) ([]domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services ORDER BY name, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	services := make([]domain.Service, 0)
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, *svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}
	return services, nil
}

// GetService retrieves a service by its ID.
func (r *Repository) GetService(ctx context.Context, id string) (*domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`

	svc, err := scanService(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrServiceNotFound
		}
		return nil, fmt.Errorf("get service: %w", err)
	}
	return svc, nil
}

// CreateService inserts a new service.
func (r *Repository) CreateService(ctx context.Context, svc *domain.Service) error {
	query := `
		INSERT INTO services (id, name, description, category, region, type, status, icon, address, port, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query,
		svc.ID,
		svc.Name,
		svc.Description,
		svc.Category,
		svc.Region,
		svc.Type,
		svc.Status,
		svc.Icon,
		svc.Address,
		svc.Port,
		svc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

// UpdateServiceStatus changes the status of a service and advances updated_at.
func (r *Repository) UpdateServiceStatus(ctx context.Context, id string, status domain.ServiceStatus, at time.Time) (*domain.Service, error) {
	query := `
		UPDATE services
		SET status = $2,
		    updated_at = GREATEST($3::timestamptz, updated_at + interval '1 microsecond')
		WHERE id = $1
		RETURNING ` + serviceColumns

	svc, err := scanService(r.db.QueryRow(ctx, query, id, status, store.Timestamp(at)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrServiceNotFound
		}
		return nil, fmt.Errorf("update service status: %w", err)
	}
	return svc, nil
}

const incidentColumns = `id, service_id, title, description, status, severity, started_at, resolved_at, created_at`

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var inc domain.Incident
	err := row.Scan(
		&inc.ID,
		&inc.ServiceID,
		&inc.Title,
		&inc.Description,
		&inc.Status,
		&inc.Severity,
		&inc.StartedAt,
		&inc.ResolvedAt,
		&inc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	inc.StartedAt = inc.StartedAt.UTC()
	inc.CreatedAt = inc.CreatedAt.UTC()
	if inc.ResolvedAt != nil {
		resolved := inc.ResolvedAt.UTC()
		inc.ResolvedAt = &resolved
	}
	return &inc, nil
}

// ListIncidents retrieves all incidents, most recently started first.
func (r *Repository) ListIncidents(ctx context.Context) ([]domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents ORDER BY started_at DESC, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]domain.Incident, 0)
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		incidents = append(incidents, *inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}
	return incidents, nil
}

// GetIncident retrieves an incident by its ID.
func (r *Repository) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`

	inc, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return inc, nil
}

// CreateIncident inserts a new incident.
func (r *Repository) CreateIncident(ctx context.Context, inc *domain.Incident) error {
	query := `
		INSERT INTO incidents (id, service_id, title, description, status, severity, started_at, resolved_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		inc.ID,
		inc.ServiceID,
		inc.Title,
		inc.Description,
		inc.Status,
		inc.Severity,
		inc.StartedAt,
		inc.ResolvedAt,
		inc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// ListStatusHistory retrieves the status trail of a service, newest first.
func (r *Repository) ListStatusHistory(ctx context.Context, serviceID string) ([]domain.StatusHistoryEntry, error) {
	query := `
		SELECT id, service_id, status, source, timestamp
		FROM status_history
		WHERE service_id = $1
		ORDER BY timestamp DESC, id
	`
	rows, err := r.db.Query(ctx, query, serviceID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.StatusHistoryEntry, 0)
	for rows.Next() {
		var e domain.StatusHistoryEntry
		if err := rows.Scan(&e.ID, &e.ServiceID, &e.Status, &e.Source, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		e.Timestamp = e.Timestamp.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status history: %w", err)
	}
	return entries, nil
}

// CreateStatusHistoryEntry appends a status history row.
func (r *Repository) CreateStatusHistoryEntry(ctx context.Context, e *domain.StatusHistoryEntry) error {
	query := `
		INSERT INTO status_history (id, service_id, status, source, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.Exec(ctx, query, e.ID, e.ServiceID, e.Status, e.Source, e.Timestamp); err != nil {
		return fmt.Errorf("create status history entry: %w", err)
	}
	return nil
}

// ListServerMetrics retrieves samples matching filter, newest first.
func (r *Repository) ListServerMetrics(ctx context.Context, filter store.MetricsFilter) ([]domain.ServerMetrics, error) {
	query := `
		SELECT id, service_id, cpu_usage, ram_usage, disk_usage, timestamp
		FROM server_metrics
		WHERE 1=1
	`
	var args []any
	argNum := 1

	if filter.ServiceID != "" {
		query += fmt.Sprintf(" AND service_id = $%d", argNum)
		args = append(args, filter.ServiceID)
		argNum++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND timestamp >= $%d", argNum)
		args = append(args, filter.Since)
		argNum++
	}
	if !filter.Until.IsZero() {
		query += fmt.Sprintf(" AND timestamp < $%d", argNum)
		args = append(args, filter.Until)
	}
	query += " ORDER BY timestamp DESC, id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list server metrics: %w", err)
	}
	defer rows.Close()

	samples := make([]domain.ServerMetrics, 0)
	for rows.Next() {
		var m domain.ServerMetrics
		if err := rows.Scan(&m.ID, &m.ServiceID, &m.CPUUsage, &m.RAMUsage, &m.DiskUsage, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan server metrics: %w", err)
		}
		m.Timestamp = m.Timestamp.UTC()
		samples = append(samples, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate server metrics: %w", err)
	}
	return samples, nil
}

// CreateServerMetrics inserts a sample.
func (r *Repository) CreateServerMetrics(ctx context.Context, m *domain.ServerMetrics) error {
	query := `
		INSERT INTO server_metrics (id, service_id, cpu_usage, ram_usage, disk_usage, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.Exec(ctx, query, m.ID, m.ServiceID, m.CPUUsage, m.RAMUsage, m.DiskUsage, m.Timestamp); err != nil {
		return fmt.Errorf("create server metrics: %w", err)
	}
	return nil
}

// WithinTx runs fn inside a transaction. Nested calls reuse the outer transaction.
func (r *Repository) WithinTx(ctx context.Context, fn func(repo store.Repository) error) error {
	if _, inTx := r.db.(pgx.Tx); inTx {
		return fn(r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Repository{pool: r.pool, db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
