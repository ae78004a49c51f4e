package reconcile

import (
	"testing"

	"github.com/statusforge/statusforge/internal/grafana"
	"github.com/statusforge/statusforge/internal/status"
)

func sampleFor(instance string) grafana.Sample {
	return grafana.Sample{Metric: map[string]string{"instance": instance}}
}

func matchedIDs(services []status.Service, instance string) []string {
	var ids []string
	for _, svc := range matchServices(services, sampleFor(instance)) {
		ids = append(ids, svc.ID)
	}
	return ids
}

func TestMatchServices(t *testing.T) {
	services := []status.Service{
		{ID: "srv-a", Name: "Alpha", Address: "10.0.0.1"},
		{ID: "srv-b", Name: "Beta", Address: "beta.internal", Port: 9100},
		{ID: "srv-c", Name: "gitlab-runner"},
	}

	tests := []struct {
		name     string
		instance string
		wantIDs  []string
	}{
		{"address substring", "10.0.0.1:9100", []string{"srv-a"}},
		{"address with port", "beta.internal:9100", []string{"srv-b"}},
		{"name in instance", "prod-gitlab-runner-01:9100", []string{"srv-c"}},
		{"instance in name", "gitlab", []string{"srv-c"}},
		{"case insensitive name", "ALPHA", []string{"srv-a"}},
		{"no match", "10.99.99.99:9100", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matchedIDs(services, tt.instance)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("matchServices(%q) = %v, want %v", tt.instance, got, tt.wantIDs)
			}
			for i := range got {
				if got[i] != tt.wantIDs[i] {
					t.Errorf("matchServices(%q) = %v, want %v", tt.instance, got, tt.wantIDs)
				}
			}
		})
	}
}

func TestMatchServicesReturnsAllMatches(t *testing.T) {
	// One exporter instance backs both the host entry and the app on it.
	services := []status.Service{
		{ID: "srv-host", Name: "db-host", Address: "10.0.0.7"},
		{ID: "srv-app", Name: "db-app", Address: "10.0.0.7", Port: 9100},
		{ID: "srv-other", Name: "web", Address: "10.0.0.8"},
	}

	got := matchedIDs(services, "10.0.0.7:9100")
	if len(got) != 2 {
		t.Fatalf("want 2 matches, got %v", got)
	}
	if got[0] != "srv-host" || got[1] != "srv-app" {
		t.Errorf("unexpected matches: %v", got)
	}
}

func TestMatchServicesEmptyInstance(t *testing.T) {
	services := []status.Service{{ID: "srv-a", Name: "Alpha"}}
	if got := matchServices(services, grafana.Sample{Metric: map[string]string{}}); got != nil {
		t.Errorf("empty instance should not match, got %d services", len(got))
	}
}
