package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/pkg/ctxlog"
)

// ImportPayload is the bulk import document: environment -> category -> records.
type ImportPayload struct {
	Data map[string]map[string][]ImportRecord `json:"data"`
}

// ImportRecord is one service in an import document.
type ImportRecord struct {
	Name        string     `json:"Name"`
	Type        string     `json:"Type"`
	Environment string     `json:"Environment"`
	Address     string     `json:"Address"`
	Port        ImportPort `json:"Port"`
}

// ImportPort accepts a port given either as a JSON number or as a string.
type ImportPort int

// UnmarshalJSON implements json.Unmarshaler.
func (p *ImportPort) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*p = 0
			return nil
		}
		data = []byte(s)
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("invalid port %s", data)
	}
	*p = ImportPort(n)
	return nil
}

// ImportResult summarizes an import.
type ImportResult struct {
	Success  bool `json:"success"`
	Imported int  `json:"imported"`
	Skipped  int  `json:"skipped"`
}

var typeIcons = map[string]string{
	"DevTools": "wrench",
	"Backend":  "server",
	"Frontend": "globe",
	"BPMN":     "workflow",
	"PSQL":     "database",
	"Database": "database",
	"Keycloak": "shield",
	"Grafana":  "chart",
	"Kafka":    "message-square",
	"Minio":    "database",
	"Redis":    "database",
	"RabbitMQ": "message-square",
}

// IconForType returns the display icon for a service type.
func IconForType(serviceType string) string {
	if icon, ok := typeIcons[serviceType]; ok {
		return icon
	}
	return "server"
}

// Import creates a service for every record in the payload. Records whose natural key
// (name, region, category, address, port) already exists are skipped, so importing
// the same document twice creates nothing the second time. Environments and categories
// are processed in sorted order.
func (s *Service) Import(ctx context.Context, payload ImportPayload) (ImportResult, error) {
	if len(payload.Data) == 0 {
		return ImportResult{}, domain.ErrEmptyImport
	}

	existing, err := s.repo.ListServices(ctx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("list services: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for i := range existing {
		seen[existing[i].NaturalKey()] = true
	}

	logger := ctxlog.FromContext(ctx)
	result := ImportResult{Success: true}

	for _, env := range slices.Sorted(maps.Keys(payload.Data)) {
		categories := payload.Data[env]
		for _, category := range slices.Sorted(maps.Keys(categories)) {
			for _, rec := range categories[category] {
				in, ok := importInput(env, category, rec)
				if !ok {
					logger.Warn("skipping import record", "environment", env, "category", category, "name", rec.Name)
					result.Skipped++
					continue
				}

				key := (&domain.Service{
					Name: in.Name, Region: in.Region, Category: in.Category,
					Address: in.Address, Port: in.Port,
				}).NaturalKey()
				if seen[key] {
					result.Skipped++
					continue
				}

				if _, err := s.CreateService(ctx, in, domain.StatusSourceImport); err != nil {
					return result, fmt.Errorf("import %q: %w", in.Name, err)
				}
				seen[key] = true
				result.Imported++
			}
		}
	}

	logger.Info("services imported", "imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}

func importInput(env, category string, rec ImportRecord) (CreateServiceInput, bool) {
	name := strings.TrimSpace(rec.Name)
	category = strings.TrimSpace(category)
	region := strings.TrimSpace(rec.Environment)
	if region == "" {
		region = strings.TrimSpace(env)
	}
	if name == "" || category == "" || region == "" {
		return CreateServiceInput{}, false
	}

	in := CreateServiceInput{
		Name:     name,
		Category: category,
		Region:   region,
		Status:   domain.ServiceStatusOperational,
	}

	t := strings.TrimSpace(rec.Type)
	icon := IconForType(t)
	in.Icon = &icon
	if t != "" {
		desc := t + " service"
		in.Type = &t
		in.Description = &desc
	}
	if addr := strings.TrimSpace(rec.Address); addr != "" {
		in.Address = &addr
	}
	if rec.Port > 0 && rec.Port <= 65535 {
		port := int(rec.Port)
		in.Port = &port
	}
	return in, true
}
