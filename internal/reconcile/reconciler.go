package reconcile

import (
	"context"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/pkg/ctxlog"
)

// ServiceCatalog is the part of the catalog the reconciler writes through.
type ServiceCatalog interface {
	ListServices(ctx context.Context) ([]domain.Service, error)
	ApplyStatus(ctx context.Context, id string, status domain.ServiceStatus, source domain.StatusSource) (*domain.Service, bool, error)
}

// Result summarizes one reconciliation pass. Skipped is set when the source could not be
// read and every service was put into the loading state instead.
type Result struct {
	Updated int  `json:"updated"`
	Errors  int  `json:"errors"`
	Skipped bool `json:"skipped"`
}

// Reconciler maps instance states onto service statuses.
type Reconciler struct {
	source  Source
	catalog ServiceCatalog
}

// NewReconciler creates a new reconciler.
func NewReconciler(source Source, catalog ServiceCatalog) *Reconciler {
	return &Reconciler{source: source, catalog: catalog}
}

// Run performs one pass. It never fails: a source or catalog read error turns into the
// loading fallback and write errors are counted in the result.
func (r *Reconciler) Run(ctx context.Context) Result {
	logger := ctxlog.FromContext(ctx)

	states, err := r.source.FetchInstances(ctx)
	if err != nil {
		logger.Error("metrics source fetch failed, marking services as loading", "error", err)
		return r.fallback(ctx)
	}

	services, err := r.catalog.ListServices(ctx)
	if err != nil {
		logger.Error("failed to list services, marking services as loading", "error", err)
		return r.fallback(ctx)
	}

	var result Result
	for _, d := range Derive(services, states) {
		_, changed, err := r.catalog.ApplyStatus(ctx, d.Service.ID, d.Status, domain.StatusSourceSync)
		if err != nil {
			logger.Error("failed to update service status",
				"service_id", d.Service.ID,
				"error", err,
			)
			result.Errors++
			continue
		}
		if changed {
			logger.Info("service status synced",
				"service_id", d.Service.ID,
				"service", d.Service.Name,
				"from", d.Service.Status,
				"to", d.Status,
			)
			result.Updated++
		}
	}
	return result
}

func (r *Reconciler) fallback(ctx context.Context) Result {
	logger := ctxlog.FromContext(ctx)
	result := Result{Skipped: true}

	services, err := r.catalog.ListServices(ctx)
	if err != nil {
		logger.Error("failed to list services for loading fallback", "error", err)
		return result
	}

	for _, svc := range services {
		if svc.Status == domain.ServiceStatusLoading {
			continue
		}
		_, changed, err := r.catalog.ApplyStatus(ctx, svc.ID, domain.ServiceStatusLoading, domain.StatusSourceSync)
		if err != nil {
			logger.Error("failed to set loading status", "service_id", svc.ID, "error", err)
			continue
		}
		if changed {
			result.Updated++
		}
	}
	return result
}

// Derivation is the status a service should have given the instance states, along with
// the service as it was when derived.
type Derivation struct {
	Service domain.Service
	Status  domain.ServiceStatus
}

// Derive computes target statuses for every service matched by at least one instance.
// A service is operational only when all of its matched instances are up. Only
// services whose status differs from the target are returned, in input order.
func Derive(services []domain.Service, states []InstanceState) []Derivation {
	allUp := make(map[string]bool, len(services))
	for _, st := range states {
		for _, svc := range Match(services, st.Instance) {
			up, seen := allUp[svc.ID]
			allUp[svc.ID] = st.Up && (up || !seen)
		}
	}

	var out []Derivation
	for _, svc := range services {
		up, ok := allUp[svc.ID]
		if !ok {
			continue
		}
		status := domain.ServiceStatusDown
		if up {
			status = domain.ServiceStatusOperational
		}
		if svc.Status != status {
			out = append(out, Derivation{Service: svc, Status: status})
		}
	}
	return out
}
