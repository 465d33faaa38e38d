package domain

import "time"

// ServerMetrics is a resource utilization sample of a service, in percent.
type ServerMetrics struct {
	ID        string    `json:"id"`
	ServiceID string    `json:"serviceId"`
	CPUUsage  float64   `json:"cpuUsage"`
	RAMUsage  float64   `json:"ramUsage"`
	DiskUsage float64   `json:"diskUsage"`
	Timestamp time.Time `json:"timestamp"`
}
