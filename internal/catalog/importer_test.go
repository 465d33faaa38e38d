package catalog

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const importDoc = `{
  "data": {
    "prod": {
      "Backend": [
        {"Name": "orders", "Type": "Backend", "Environment": "prod", "Address": "10.0.0.5", "Port": 8080},
        {"Name": "cache", "Type": " Redis ", "Environment": "", "Address": "10.0.0.6", "Port": "6379"}
      ],
      "Tools": [
        {"Name": "jenkins", "Type": "Unknown", "Address": "ci.local"},
        {"Name": "  ", "Type": "Backend"}
      ]
    }
  }
}`

func decodeImport(t *testing.T, doc string) ImportPayload {
	t.Helper()
	var payload ImportPayload
	require.NoError(t, json.Unmarshal([]byte(doc), &payload))
	return payload
}

func TestService_Import(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.Import(ctx, decodeImport(t, importDoc))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Success: true, Imported: 3, Skipped: 1}, result)

	services, err := svc.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, services, 3)

	byName := make(map[string]domain.Service)
	for _, s := range services {
		byName[s.Name] = s
	}

	orders := byName["orders"]
	assert.Equal(t, "Backend", orders.Category)
	assert.Equal(t, "prod", orders.Region)
	assert.Equal(t, "Backend service", *orders.Description)
	assert.Equal(t, "server", *orders.Icon)
	assert.Equal(t, 8080, *orders.Port)
	assert.Equal(t, domain.ServiceStatusOperational, orders.Status)

	cache := byName["cache"]
	assert.Equal(t, "prod", cache.Region, "outer environment key is the fallback region")
	assert.Equal(t, "database", *cache.Icon, "icon follows the trimmed type")
	assert.Equal(t, "Redis", *cache.Type)
	assert.Equal(t, "Redis service", *cache.Description)
	assert.Equal(t, 6379, *cache.Port)

	jenkins := byName["jenkins"]
	assert.Equal(t, "server", *jenkins.Icon)
	assert.Nil(t, jenkins.Port)

	history, err := svc.StatusHistory(ctx, orders.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.StatusSourceImport, history[0].Source)
}

func TestService_Import_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Import(ctx, decodeImport(t, importDoc))
	require.NoError(t, err)

	result, err := svc.Import(ctx, decodeImport(t, importDoc))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Imported)
	assert.Equal(t, 4, result.Skipped)

	services, err := svc.ListServices(ctx)
	require.NoError(t, err)
	assert.Len(t, services, 3)
}

func TestService_Import_Empty(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Import(context.Background(), ImportPayload{})
	assert.ErrorIs(t, err, domain.ErrEmptyImport)
}

func TestImportPort_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    ImportPort
		wantErr bool
	}{
		{in: `8080`, want: 8080},
		{in: `"443"`, want: 443},
		{in: `""`, want: 0},
		{in: `null`, want: 0},
		{in: `"http"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var p ImportPort
			err := json.Unmarshal([]byte(tt.in), &p)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestIconForType(t *testing.T) {
	assert.Equal(t, "wrench", IconForType("DevTools"))
	assert.Equal(t, "message-square", IconForType("Kafka"))
	assert.Equal(t, "shield", IconForType("Keycloak"))
	assert.Equal(t, "server", IconForType("Mainframe"))
}

func TestService_Export(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateService(ctx, CreateServiceInput{
		Name: "api, public", Category: "Backend", Region: "prod", Port: ptr(443),
	}, domain.StatusSourceCreate)
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		export, err := svc.Export(ctx, FormatJSON)
		require.NoError(t, err)
		assert.Equal(t, "services.json", export.Filename)

		var services []domain.Service
		require.NoError(t, json.Unmarshal(export.Body, &services))
		require.Len(t, services, 1)
		assert.Equal(t, "api, public", services[0].Name)
	})

	t.Run("csv", func(t *testing.T) {
		export, err := svc.Export(ctx, FormatCSV)
		require.NoError(t, err)
		assert.Equal(t, "services.csv", export.Filename)

		records, err := csv.NewReader(strings.NewReader(string(export.Body))).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, csvHeader, records[0])
		assert.Equal(t, "api, public", records[1][1])
		assert.Equal(t, "443", records[1][9])
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := svc.Export(ctx, "pdf")
		assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	})
}
