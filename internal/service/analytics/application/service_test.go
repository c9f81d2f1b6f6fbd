package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"dispatch/internal/pkg/apperr"
	"dispatch/internal/service/analytics/domain"
	identity "dispatch/internal/service/identity/domain"
)

type mockQueries struct {
	dashboardCalls int
	dashboard      *domain.DashboardSummary
	err            error
}

func (m *mockQueries) Dashboard(ctx context.Context, scope domain.Scope) (*domain.DashboardSummary, error) {
	m.dashboardCalls++
	return m.dashboard, m.err
}

func (m *mockQueries) SalesDaily(ctx context.Context, scope domain.Scope, days int) ([]domain.SalesPoint, error) {
	return []domain.SalesPoint{{Period: "2026-08-30", Orders: 3, Sales: 420}}, m.err
}

func (m *mockQueries) SalesWeekly(ctx context.Context, scope domain.Scope, weeks int) ([]domain.SalesPoint, error) {
	return nil, m.err
}

func (m *mockQueries) PaymentBreakdown(ctx context.Context, scope domain.Scope) ([]domain.BreakdownSlice, error) {
	return nil, m.err
}

func (m *mockQueries) StatusBreakdown(ctx context.Context, scope domain.Scope) ([]domain.BreakdownSlice, error) {
	return nil, m.err
}

func (m *mockQueries) TopCustomers(ctx context.Context, scope domain.Scope, limit int) ([]domain.TopCustomer, error) {
	return nil, m.err
}

func (m *mockQueries) DeliveryPerformance(ctx context.Context, scope domain.Scope) (*domain.DeliveryPerformance, error) {
	return &domain.DeliveryPerformance{Delivered: 5, AvgMinutes: 22}, m.err
}

type mockCache struct {
	values map[string]string
	getErr error
	setErr error
	sets   int
}

func newMockCache() *mockCache {
	return &mockCache{values: make(map[string]string)}
}

func (m *mockCache) Get(ctx context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mockCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	m.sets++
	return nil
}

func uintPtr(v uint) *uint { return &v }

var (
	admin   = identity.Identity{UserID: 1, Role: identity.RoleAdmin}
	manager = identity.Identity{UserID: 2, Role: identity.RoleStoreManager, StoreID: uintPtr(3)}
)

func newService() (*AnalyticsApplicationService, *mockQueries, *mockCache) {
	queries := &mockQueries{dashboard: &domain.DashboardSummary{TotalOrders: 10, SalesToday: 900}}
	cache := newMockCache()
	svc := NewAnalyticsApplicationService(queries, cache, noop.NewTracerProvider().Tracer("test"))
	return svc, queries, cache
}

func TestDashboard_ReadThrough(t *testing.T) {
	svc, queries, cache := newService()

	// 首次未命中：查库并回填
	summary, err := svc.Dashboard(context.Background(), manager, uintPtr(3))
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if summary.TotalOrders != 10 {
		t.Errorf("expected 10 orders, got %d", summary.TotalOrders)
	}
	if queries.dashboardCalls != 1 || cache.sets != 1 {
		t.Errorf("expected one query and one cache fill, got %d/%d", queries.dashboardCalls, cache.sets)
	}

	// 第二次命中缓存，不再查库
	if _, err := svc.Dashboard(context.Background(), manager, uintPtr(3)); err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if queries.dashboardCalls != 1 {
		t.Errorf("cache hit must not query the database, got %d calls", queries.dashboardCalls)
	}
}

func TestDashboard_CacheFailOpen(t *testing.T) {
	svc, queries, cache := newService()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")

	summary, err := svc.Dashboard(context.Background(), manager, uintPtr(3))
	if err != nil {
		t.Fatalf("cache outage must not fail the request: %v", err)
	}
	if summary.TotalOrders != 10 || queries.dashboardCalls != 1 {
		t.Errorf("expected database fallback, got %+v calls=%d", summary, queries.dashboardCalls)
	}
}

func TestDashboard_CorruptCacheEntryRecomputed(t *testing.T) {
	svc, queries, cache := newService()
	cache.values["analytics:store:3:dashboard"] = "{not json"

	if _, err := svc.Dashboard(context.Background(), manager, uintPtr(3)); err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if queries.dashboardCalls != 1 {
		t.Errorf("corrupt entry must trigger recompute, got %d calls", queries.dashboardCalls)
	}
}

func TestScope_Authorization(t *testing.T) {
	svc, _, _ := newService()

	// 全局视图仅管理员
	if _, err := svc.Dashboard(context.Background(), manager, nil); !apperr.IsKind(err, apperr.Forbidden) {
		t.Errorf("manager global view: expected Forbidden, got %v", err)
	}
	if _, err := svc.Dashboard(context.Background(), admin, nil); err != nil {
		t.Errorf("admin global view failed: %v", err)
	}

	// 经理仅限自己的门店
	if _, err := svc.Dashboard(context.Background(), manager, uintPtr(4)); !apperr.IsKind(err, apperr.Forbidden) {
		t.Errorf("other-store dashboard: expected Forbidden, got %v", err)
	}

	// 配送员无报表权限
	partner := identity.Identity{UserID: 9, Role: identity.RoleDeliveryBoy, StoreID: uintPtr(3)}
	if _, err := svc.Dashboard(context.Background(), partner, uintPtr(3)); !apperr.IsKind(err, apperr.Forbidden) {
		t.Errorf("partner dashboard: expected Forbidden, got %v", err)
	}
}

func TestSalesDaily_DefaultWindow(t *testing.T) {
	svc, _, cache := newService()
	points, err := svc.SalesDaily(context.Background(), admin, uintPtr(3), 0)
	if err != nil {
		t.Fatalf("SalesDaily failed: %v", err)
	}
	if len(points) != 1 || points[0].Sales != 420 {
		t.Errorf("unexpected points: %+v", points)
	}
	if _, ok := cache.values["analytics:store:3:sales-daily"]; !ok {
		t.Error("expected sales-daily cache fill")
	}
}
