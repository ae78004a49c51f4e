package reconcile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/statusforge/statusforge/internal/event"
	"github.com/statusforge/statusforge/internal/grafana"
	"github.com/statusforge/statusforge/internal/metricsapi"
	"github.com/statusforge/statusforge/internal/status"
	"github.com/statusforge/statusforge/internal/store"
	"go.uber.org/zap"
)

// fakeSource is an in-memory metrics API.
type fakeSource struct {
	available bool
	records   []metricsapi.ServerRecord
}

func (f *fakeSource) BaseURL() string                            { return "http://fake" }
func (f *fakeSource) CheckAvailability(context.Context) bool     { return f.available }
func (f *fakeSource) FetchAllServerMetrics(context.Context) []metricsapi.ServerRecord {
	return f.records
}

func newTestStatusStore(t *testing.T) *status.Store {
	t.Helper()

	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	st, err := status.NewStore(context.Background(), db, event.NewBus(zap.NewNop()))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return st
}

func TestSyncServicesCreatesAndSnapshots(t *testing.T) {
	st := newTestStatusStore(t)
	src := &fakeSource{
		available: true,
		records: []metricsapi.ServerRecord{
			{ServerName: "GitLab", CPUUsage: 45, MemoryUsage: 60, DiskUsage: 70},
			{ServerName: "postgres-db", CPUUsage: 0, MemoryUsage: 0, DiskUsage: 40},
		},
	}
	e := NewEngine(st, src, grafana.NewClient("", "", time.Second), zap.NewNop())

	services, available, err := e.SyncServices(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !available {
		t.Fatal("source should be available")
	}
	if len(services) != 2 {
		t.Fatalf("want 2 services, got %d", len(services))
	}

	gitlab, err := st.GetService(context.Background(), "srv-gitlab")
	if err != nil || gitlab == nil {
		t.Fatalf("gitlab service missing: %v", err)
	}
	if gitlab.Status != status.StatusOperational {
		t.Errorf("gitlab status: want operational, got %s", gitlab.Status)
	}
	if gitlab.Category != "DevTools" || gitlab.Region != "Production" || gitlab.Type != "Server" {
		t.Errorf("unexpected gitlab metadata: %+v", gitlab)
	}

	db, err := st.GetService(context.Background(), "srv-postgres-db")
	if err != nil || db == nil {
		t.Fatalf("db service missing: %v", err)
	}
	if db.Status != status.StatusDown {
		t.Errorf("db status: want down (no signal), got %s", db.Status)
	}

	snapshots, err := st.ListServerMetrics(context.Background(), "srv-gitlab")
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if len(snapshots) != 1 {
		t.Errorf("want 1 snapshot for gitlab, got %d", len(snapshots))
	}
}

func TestSyncServicesNoOpSuppression(t *testing.T) {
	st := newTestStatusStore(t)
	src := &fakeSource{
		available: true,
		records:   []metricsapi.ServerRecord{{ServerName: "api", CPUUsage: 30, MemoryUsage: 40, DiskUsage: 50}},
	}
	e := NewEngine(st, src, grafana.NewClient("", "", time.Second), zap.NewNop())

	ctx := context.Background()
	for range 3 {
		if _, _, err := e.SyncServices(ctx); err != nil {
			t.Fatalf("sync: %v", err)
		}
	}

	// Status never changed after creation, so history holds only the
	// creation entry. Snapshots accrue every cycle.
	history, err := st.ListStatusHistory(ctx, "srv-api")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("want 1 history entry after 3 unchanged syncs, got %d", len(history))
	}

	snapshots, err := st.ListServerMetrics(ctx, "srv-api")
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if len(snapshots) != 3 {
		t.Errorf("want 3 snapshots, got %d", len(snapshots))
	}
}

func TestSyncServicesStatusTransitionAppendsHistory(t *testing.T) {
	st := newTestStatusStore(t)
	src := &fakeSource{
		available: true,
		records:   []metricsapi.ServerRecord{{ServerName: "api", CPUUsage: 30, MemoryUsage: 40, DiskUsage: 50}},
	}
	e := NewEngine(st, src, grafana.NewClient("", "", time.Second), zap.NewNop())
	ctx := context.Background()

	if _, _, err := e.SyncServices(ctx); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	src.records[0].CPUUsage = 95
	if _, _, err := e.SyncServices(ctx); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	svc, err := st.GetService(ctx, "srv-api")
	if err != nil || svc == nil {
		t.Fatalf("service missing: %v", err)
	}
	if svc.Status != status.StatusDegraded {
		t.Errorf("status: want degraded, got %s", svc.Status)
	}

	history, err := st.ListStatusHistory(ctx, "srv-api")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("want 2 history entries, got %d", len(history))
	}
}

func TestSyncServicesUnavailableServesStore(t *testing.T) {
	st := newTestStatusStore(t)
	if _, err := st.CreateService(context.Background(), status.InsertService{Name: "api", Category: "Backend", Region: "eu"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	e := NewEngine(st, &fakeSource{available: false}, grafana.NewClient("", "", time.Second), zap.NewNop())

	services, available, err := e.SyncServices(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if available {
		t.Error("source should be unavailable")
	}
	if len(services) != 1 {
		t.Errorf("stored services should be served: got %d", len(services))
	}
}

func grafanaTestClient(t *testing.T, handler http.HandlerFunc) *grafana.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return grafana.NewClient(srv.URL, "tok", time.Second)
}

func TestSyncFromGrafanaUpMapping(t *testing.T) {
	st := newTestStatusStore(t)
	ctx := context.Background()

	seed := []status.InsertService{
		{ID: "srv-up", Name: "up-svc", Category: "Backend", Region: "eu", Address: "10.0.0.1"},
		{ID: "srv-down", Name: "down-svc", Category: "Backend", Region: "eu", Address: "10.0.0.2"},
		{ID: "srv-flaky", Name: "flaky-svc", Category: "Backend", Region: "eu", Address: "10.0.0.3"},
		{ID: "srv-unmatched", Name: "other", Category: "Backend", Region: "eu", Address: "10.9.9.9", Status: status.StatusMaintenance},
	}
	for _, ins := range seed {
		if _, err := st.CreateService(ctx, ins); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	client := grafanaTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"status": "success",
			"data": {"result": [
				{"metric": {"instance": "10.0.0.1:9100"}, "value": [1, "1"]},
				{"metric": {"instance": "10.0.0.2:9100"}, "value": [1, "0"]},
				{"metric": {"instance": "10.0.0.3:9100"}, "value": [1, "0.5"]}
			]}
		}`))
	})

	e := NewEngine(st, nil, client, zap.NewNop())
	updated, failed, skipped, err := e.SyncFromGrafana(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if skipped || failed != 0 {
		t.Errorf("skipped=%v failed=%d", skipped, failed)
	}
	// srv-up was already operational, so only two transitions are written.
	if updated != 2 {
		t.Errorf("want 2 updates, got %d", updated)
	}

	wantStatus := map[string]status.ServiceStatus{
		"srv-up":        status.StatusOperational,
		"srv-down":      status.StatusDown,
		"srv-flaky":     status.StatusDegraded,
		"srv-unmatched": status.StatusMaintenance,
	}
	for id, want := range wantStatus {
		svc, err := st.GetService(ctx, id)
		if err != nil || svc == nil {
			t.Fatalf("service %s missing: %v", id, err)
		}
		if svc.Status != want {
			t.Errorf("%s: want %s, got %s", id, want, svc.Status)
		}
	}
}

func TestSyncFromGrafanaUpdatesEveryMatchingService(t *testing.T) {
	st := newTestStatusStore(t)
	ctx := context.Background()

	// Both services match the same exporter instance by name substring.
	seed := []status.InsertService{
		{ID: "srv-api", Name: "api", Category: "Backend", Region: "eu"},
		{ID: "srv-api-gateway", Name: "api-gateway", Category: "Backend", Region: "eu"},
	}
	for _, ins := range seed {
		if _, err := st.CreateService(ctx, ins); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	client := grafanaTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"status": "success",
			"data": {"result": [
				{"metric": {"instance": "api-gateway:9100"}, "value": [1, "0"]}
			]}
		}`))
	})

	e := NewEngine(st, nil, client, zap.NewNop())
	updated, failed, skipped, err := e.SyncFromGrafana(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if skipped || failed != 0 {
		t.Errorf("skipped=%v failed=%d", skipped, failed)
	}
	if updated != 2 {
		t.Errorf("want both matching services updated, got %d", updated)
	}

	for _, id := range []string{"srv-api", "srv-api-gateway"} {
		svc, err := st.GetService(ctx, id)
		if err != nil || svc == nil {
			t.Fatalf("service %s missing: %v", id, err)
		}
		if svc.Status != status.StatusDown {
			t.Errorf("%s: want down, got %s", id, svc.Status)
		}
	}
}

func TestSyncFromGrafanaOutageForcesLoading(t *testing.T) {
	st := newTestStatusStore(t)
	ctx := context.Background()

	for _, ins := range []status.InsertService{
		{ID: "srv-a", Name: "a", Category: "Backend", Region: "eu"},
		{ID: "srv-b", Name: "b", Category: "Backend", Region: "eu", Status: status.StatusLoading},
	} {
		if _, err := st.CreateService(ctx, ins); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	client := grafanaTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	e := NewEngine(st, nil, client, zap.NewNop())
	updated, failed, skipped, err := e.SyncFromGrafana(ctx)
	if err != nil {
		t.Fatalf("outage should not error: %v", err)
	}
	if !skipped {
		t.Error("want skipped=true on outage")
	}
	if failed != 0 {
		t.Errorf("failed=%d", failed)
	}
	// srv-b was already loading; only srv-a transitions.
	if updated != 1 {
		t.Errorf("want 1 forced transition, got %d", updated)
	}

	for _, id := range []string{"srv-a", "srv-b"} {
		svc, err := st.GetService(ctx, id)
		if err != nil || svc == nil {
			t.Fatalf("service %s missing: %v", id, err)
		}
		if svc.Status != status.StatusLoading {
			t.Errorf("%s: want loading, got %s", id, svc.Status)
		}
	}

	historyB, err := st.ListStatusHistory(ctx, "srv-b")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(historyB) != 1 {
		t.Errorf("already-loading service gained history entries: %d", len(historyB))
	}
}
