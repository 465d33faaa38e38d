package domain

import "errors"

// Domain errors.
var (
	ErrServiceNotFound     = errors.New("service not found")
	ErrIncidentNotFound    = errors.New("incident not found")
	ErrInvalidStatus       = errors.New("invalid status value")
	ErrInvalidSeverity     = errors.New("invalid severity value")
	ErrResolvedBeforeStart = errors.New("resolvedAt must not be before startedAt")
	ErrNoAddress           = errors.New("service has no address")
	ErrSyncNotConfigured   = errors.New("sync source is not configured")
	ErrSyncInProgress      = errors.New("sync already in progress")
	ErrUnsupportedFormat   = errors.New("unsupported format")
	ErrEmptyImport         = errors.New("no data provided")
)
