package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/bissquit/statusboard/internal/domain"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Export is a rendered catalog download.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

var csvHeader = []string{
	"id", "name", "description", "category", "region", "type",
	"status", "icon", "address", "port", "updatedAt",
}

// Export renders every service as JSON or CSV.
func (s *Service) Export(ctx context.Context, format string) (*Export, error) {
	if format != FormatJSON && format != FormatCSV {
		return nil, domain.ErrUnsupportedFormat
	}

	services, err := s.ListServices(ctx)
	if err != nil {
		return nil, err
	}

	if format == FormatJSON {
		body, err := json.MarshalIndent(services, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode services: %w", err)
		}
		return &Export{Filename: "services.json", ContentType: "application/json", Body: body}, nil
	}

	body, err := servicesCSV(services)
	if err != nil {
		return nil, err
	}
	return &Export{Filename: "services.csv", ContentType: "text/csv; charset=utf-8", Body: body}, nil
}

func servicesCSV(services []domain.Service) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for i := range services {
		svc := &services[i]
		port := ""
		if svc.Port != nil {
			port = strconv.Itoa(*svc.Port)
		}
		row := []string{
			svc.ID,
			svc.Name,
			str(svc.Description),
			svc.Category,
			svc.Region,
			str(svc.Type),
			string(svc.Status),
			str(svc.Icon),
			str(svc.Address),
			port,
			svc.UpdatedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
