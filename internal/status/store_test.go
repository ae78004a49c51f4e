package status

import (
	"context"
	"testing"

	"github.com/statusforge/statusforge/internal/event"
	"github.com/statusforge/statusforge/internal/store"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	st, err := NewStore(context.Background(), db, event.NewBus(zap.NewNop()))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return st
}

func TestCreateServiceUpsert(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	ins := InsertService{Name: "gitlab", Region: "Production", Category: "DevTools", Address: "10.0.0.5"}

	first, err := st.CreateService(ctx, ins)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Status != StatusOperational {
		t.Errorf("default status: want operational, got %s", first.Status)
	}

	ins.Description = "updated"
	second, err := st.CreateService(ctx, ins)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert changed id: %s vs %s", second.ID, first.ID)
	}

	services, err := st.ListServices(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(services) != 1 {
		t.Fatalf("want 1 service after upsert, got %d", len(services))
	}
	if services[0].Description != "updated" {
		t.Errorf("upsert did not update description: %q", services[0].Description)
	}
}

func TestCreateServiceExternalID(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	svc, err := st.CreateService(ctx, InsertService{ID: "srv-gitlab", Name: "GitLab", Category: "DevTools", Region: "Production"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if svc.ID != "srv-gitlab" {
		t.Errorf("external id not preserved: %s", svc.ID)
	}
}

func TestUpdateServiceStatusAppendsHistory(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	svc, err := st.CreateService(ctx, InsertService{Name: "api", Category: "Backend", Region: "eu"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := st.UpdateServiceStatus(ctx, svc.ID, StatusDown)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != StatusDown {
		t.Errorf("status not updated: %s", updated.Status)
	}

	history, err := st.ListStatusHistory(ctx, svc.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	// One entry from creation, one from the update, newest first.
	if len(history) != 2 {
		t.Fatalf("want 2 history entries, got %d", len(history))
	}
	if history[0].Status != StatusDown {
		t.Errorf("newest entry: want down, got %s", history[0].Status)
	}
}

func TestUpdateServiceStatusUnknownID(t *testing.T) {
	st := newTestStore(t)

	svc, err := st.UpdateServiceStatus(context.Background(), "nope", StatusDown)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc != nil {
		t.Errorf("want nil service for unknown id, got %+v", svc)
	}
}

func TestGetServiceNotFound(t *testing.T) {
	st := newTestStore(t)

	svc, err := st.GetService(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc != nil {
		t.Errorf("want nil for missing service, got %+v", svc)
	}
}

func TestIncidentLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	inc, err := st.CreateIncident(ctx, InsertIncident{
		ServiceID: "srv-api",
		Title:     "elevated error rate",
		Status:    IncidentInvestigating,
		Severity:  SeverityMajor,
	})
	if err != nil {
		t.Fatalf("create incident: %v", err)
	}
	if inc.StartedAt.IsZero() {
		t.Error("startedAt should default to now")
	}
	if inc.ResolvedAt != nil {
		t.Error("new incident should not be resolved")
	}

	resolved, err := st.UpdateIncidentStatus(ctx, inc.ID, IncidentResolved, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != IncidentResolved {
		t.Errorf("status: want resolved, got %s", resolved.Status)
	}
	if resolved.ResolvedAt == nil {
		t.Error("resolving should stamp resolvedAt")
	}
}

func TestUpdateIncidentStatusUnknownID(t *testing.T) {
	st := newTestStore(t)

	inc, err := st.UpdateIncidentStatus(context.Background(), "nope", IncidentResolved, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inc != nil {
		t.Errorf("want nil incident for unknown id, got %+v", inc)
	}
}

func TestServerMetricsFilter(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"srv-a", "srv-a", "srv-b"} {
		if _, err := st.CreateServerMetrics(ctx, InsertServerMetrics{ServiceID: id, CPUUsage: 10}); err != nil {
			t.Fatalf("create metrics: %v", err)
		}
	}

	all, err := st.ListServerMetrics(ctx, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("want 3 snapshots, got %d", len(all))
	}

	filtered, err := st.ListServerMetrics(ctx, "srv-a")
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("want 2 snapshots for srv-a, got %d", len(filtered))
	}
}

func TestStatusChangedEventPublished(t *testing.T) {
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	bus := event.NewBus(zap.NewNop())
	var got []*Service
	bus.Subscribe(TopicStatusChanged, func(_ context.Context, ev event.Event) {
		if svc, ok := ev.Payload.(*Service); ok {
			got = append(got, svc)
		}
	})

	st, err := NewStore(context.Background(), db, bus)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	svc, err := st.CreateService(context.Background(), InsertService{Name: "api", Category: "Backend", Region: "eu"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.UpdateServiceStatus(context.Background(), svc.ID, StatusDegraded); err != nil {
		t.Fatalf("update: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("want 2 events (create + update), got %d", len(got))
	}
	if got[1].Status != StatusDegraded {
		t.Errorf("second event status: want degraded, got %s", got[1].Status)
	}
}
