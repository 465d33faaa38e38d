package reconcile

import (
	"testing"

	"github.com/bissquit/statusboard/internal/domain"
	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func ids(services []domain.Service) []string {
	out := make([]string, 0, len(services))
	for _, s := range services {
		out = append(out, s.ID)
	}
	return out
}

func TestMatch(t *testing.T) {
	services := []domain.Service{
		{ID: "db", Name: "Postgres Primary", Address: ptr("10.0.0.5"), Port: ptr(5432)},
		{ID: "api", Name: "api-gateway", Address: ptr("api.internal")},
		{ID: "cache", Name: "Redis", Address: ptr("10.0.0.7")},
		{ID: "noaddr", Name: "node-exporter"},
	}

	tests := []struct {
		name  string
		label string
		want  []string
	}{
		{"address contained in label", "10.0.0.5:9100", []string{"db"}},
		{"address and port", "10.0.0.5:5432", []string{"db"}},
		{"label inside name ignoring case", "POSTGRES", []string{"db"}},
		{"name inside label", "prod-API-GATEWAY-01", []string{"api"}},
		{"several matches", "redis on 10.0.0.5", []string{"db", "cache"}},
		{"services without address never match", "node-exporter", nil},
		{"no match", "10.9.9.9:9100", nil},
		{"empty label", "", nil},
		{"blank label", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match(services, tt.label)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestDerive(t *testing.T) {
	services := []domain.Service{
		{ID: "a", Name: "alpha", Address: ptr("10.0.0.1"), Status: domain.ServiceStatusLoading},
		{ID: "b", Name: "beta", Address: ptr("10.0.0.2"), Status: domain.ServiceStatusOperational},
		{ID: "c", Name: "gamma", Address: ptr("10.0.0.3"), Status: domain.ServiceStatusOperational},
		{ID: "d", Name: "delta", Address: ptr("10.0.0.4"), Status: domain.ServiceStatusDown},
	}
	states := []InstanceState{
		{Instance: "10.0.0.1:9100", Up: true},
		{Instance: "10.0.0.2:9100", Up: true},
		{Instance: "10.0.0.3:9100", Up: true},
		{Instance: "10.0.0.3:9256", Up: false},
	}

	got := Derive(services, states)

	assert.Equal(t, []Derivation{
		{Service: services[0], Status: domain.ServiceStatusOperational},
		{Service: services[2], Status: domain.ServiceStatusDown},
	}, got)
}

func TestDerive_OrderOfStatesDoesNotMatter(t *testing.T) {
	services := []domain.Service{
		{ID: "c", Name: "gamma", Address: ptr("10.0.0.3"), Status: domain.ServiceStatusOperational},
	}
	down := InstanceState{Instance: "10.0.0.3:1", Up: false}
	up := InstanceState{Instance: "10.0.0.3:2", Up: true}

	assert.Equal(t, Derive(services, []InstanceState{down, up}), Derive(services, []InstanceState{up, down}))
}
