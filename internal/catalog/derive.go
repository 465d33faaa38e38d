package catalog

import "github.com/bissquit/statusboard/internal/domain"

// DeriveFromProbe maps a reachability result to a status.
func DeriveFromProbe(available bool) domain.ServiceStatus {
	if available {
		return domain.ServiceStatusOperational
	}
	return domain.ServiceStatusDown
}

// Resource usage thresholds, in percent.
const (
	criticalUsage = 90
	highCPUUsage  = 80
	highRAMUsage  = 80
	highDiskUsage = 85
)

// DeriveFromUsage maps a resource sample to a status. A host reporting no CPU and
// no memory use at all is treated as down.
func DeriveFromUsage(cpu, ram, disk float64) domain.ServiceStatus {
	switch {
	case cpu == 0 && ram == 0:
		return domain.ServiceStatusDown
	case cpu > criticalUsage || ram > criticalUsage || disk > criticalUsage:
		return domain.ServiceStatusDegraded
	case cpu > highCPUUsage || ram > highRAMUsage || disk > highDiskUsage:
		return domain.ServiceStatusMaintenance
	default:
		return domain.ServiceStatusOperational
	}
}
