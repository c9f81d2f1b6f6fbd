// internal/service/analytics/application/service.go
package application

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/trace"

	"dispatch/internal/pkg/constants"
	"dispatch/internal/pkg/logger"
	"dispatch/internal/service/analytics/domain"
	identity "dispatch/internal/service/identity/domain"
)

// ReportCache 是报表层需要的最小缓存接口，由 internal/pkg/redis 的客户端满足。
type ReportCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// 每种报表的缓存 TTL。写路径的失效让 TTL 只是兜底，
// 因此概览类报表可以用很短的过期时间。
var reportTTLs = map[string]time.Duration{
	constants.ReportDashboard:           30 * time.Second,
	constants.ReportSalesDaily:          5 * time.Minute,
	constants.ReportSalesWeekly:         10 * time.Minute,
	constants.ReportPaymentBreakdown:    2 * time.Minute,
	constants.ReportStatusBreakdown:     2 * time.Minute,
	constants.ReportTopCustomers:        5 * time.Minute,
	constants.ReportDeliveryPerformance: 2 * time.Minute,
}

// AnalyticsApplicationService 提供 read-through 缓存的聚合报表。
// 缓存故障一律降级为直接查库（fail-open），绝不因为 Redis 不可用而拒绝请求。
type AnalyticsApplicationService struct {
	queries domain.ReportQueries
	cache   ReportCache
	tracer  trace.Tracer
}

func NewAnalyticsApplicationService(queries domain.ReportQueries, cache ReportCache, tracer trace.Tracer) *AnalyticsApplicationService {
	return &AnalyticsApplicationService{queries: queries, cache: cache, tracer: tracer}
}

// resolveScope 把请求的门店参数换算为查询范围并做授权。
// storeID 为 nil 是全局视图，仅管理员可用；门店视图要求经理/管理员身份。
func resolveScope(actor identity.Identity, storeID *uint) (domain.Scope, error) {
	if storeID == nil {
		if actor.Role != identity.RoleAdmin {
			return domain.Scope{}, identity.ErrAccessDenied
		}
		return domain.Scope{}, nil
	}
	if !identity.CanManageStore(actor, *storeID) {
		return domain.Scope{}, identity.ErrAccessDenied
	}
	return domain.Scope{StoreID: storeID}, nil
}

func cacheKey(scope domain.Scope, report string) string {
	if scope.StoreID == nil {
		return constants.GlobalReportCacheKey(report)
	}
	return constants.ReportCacheKey(*scope.StoreID, report)
}

// readThrough 先查缓存，未命中则执行 fetch 并回填。缓存读写失败只记日志。
func readThrough[T any](ctx context.Context, s *AnalyticsApplicationService, scope domain.Scope, report string, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	key := cacheKey(scope, report)

	raw, found, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("report cache read failed, falling back to database")
	} else if found {
		var cached T
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached, nil
		}
		logger.Ctx(ctx).Warn().Str("key", key).Msg("corrupt report cache entry, recomputing")
	}

	result, err := fetch(ctx)
	if err != nil {
		return zero, err
	}

	if payload, err := json.Marshal(result); err == nil {
		if err := s.cache.Set(ctx, key, string(payload), reportTTLs[report]); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("report cache write failed")
		}
	}
	return result, nil
}

// Dashboard 返回运营概览。
func (s *AnalyticsApplicationService) Dashboard(ctx context.Context, actor identity.Identity, storeID *uint) (*domain.DashboardSummary, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.Dashboard")
	defer span.End()

	scope, err := resolveScope(actor, storeID)
	if err != nil {
		return nil, err
	}
	return readThrough(ctx, s, scope, constants.ReportDashboard, func(ctx context.Context) (*domain.DashboardSummary, error) {
		return s.queries.Dashboard(ctx, scope)
	})
}

// SalesDaily 返回按天聚合的销售序列，默认最近 30 天。
func (s *AnalyticsApplicationService) SalesDaily(ctx context.Context, actor identity.Identity, storeID *uint, days int) ([]domain.SalesPoint, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.SalesDaily")
	defer span.End()

	scope, err := resolveScope(actor, storeID)
	if err != nil {
		return nil, err
	}
	if days <= 0 || days > 365 {
		days = 30
	}
	return readThrough(ctx, s, scope, constants.ReportSalesDaily, func(ctx context.Context) ([]domain.SalesPoint, error) {
		return s.queries.SalesDaily(ctx, scope, days)
	})
}

// SalesWeekly 返回按周聚合的销售序列，默认最近 12 周。
func (s *AnalyticsApplicationService) SalesWeekly(ctx context.Context, actor identity.Identity, storeID *uint, weeks int) ([]domain.SalesPoint, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.SalesWeekly")
	defer span.End()

	scope, err := resolveScope(actor, storeID)
	if err != nil {
		return nil, err
	}
	if weeks <= 0 || weeks > 104 {
		weeks = 12
	}
	return readThrough(ctx, s, scope, constants.ReportSalesWeekly, func(ctx context.Context) ([]domain.SalesPoint, error) {
		return s.queries.SalesWeekly(ctx, scope, weeks)
	})
}

// PaymentBreakdown 返回已送达订单按支付方式的分布。
func (s *AnalyticsApplicationService) PaymentBreakdown(ctx context.Context, actor identity.Identity, storeID *uint) ([]domain.BreakdownSlice, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.PaymentBreakdown")
	defer span.End()

	scope, err := resolveScope(actor, storeID)
	if err != nil {
		return nil, err
	}
	return readThrough(ctx, s, scope, constants.ReportPaymentBreakdown, func(ctx context.Context) ([]domain.BreakdownSlice, error) {
		return s.queries.PaymentBreakdown(ctx, scope)
	})
}

// StatusBreakdown 返回订单按状态的分布。
func (s *AnalyticsApplicationService) StatusBreakdown(ctx context.Context, actor identity.Identity, storeID *uint) ([]domain.BreakdownSlice, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.StatusBreakdown")
	defer span.End()

	scope, err := resolveScope(actor, storeID)
	if err != nil {
		return nil, err
	}
	return readThrough(ctx, s, scope, constants.ReportStatusBreakdown, func(ctx context.Context) ([]domain.BreakdownSlice, error) {
		return s.queries.StatusBreakdown(ctx, scope)
	})
}

// TopCustomers 返回按累计销售额排序的顾客，默认前 10 名。
func (s *AnalyticsApplicationService) TopCustomers(ctx context.Context, actor identity.Identity, storeID *uint, limit int) ([]domain.TopCustomer, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.TopCustomers")
	defer span.End()

	scope, err := resolveScope(actor, storeID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return readThrough(ctx, s, scope, constants.ReportTopCustomers, func(ctx context.Context) ([]domain.TopCustomer, error) {
		return s.queries.TopCustomers(ctx, scope, limit)
	})
}

// DeliveryPerformance 返回配送效率指标。
func (s *AnalyticsApplicationService) DeliveryPerformance(ctx context.Context, actor identity.Identity, storeID *uint) (*domain.DeliveryPerformance, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.DeliveryPerformance")
	defer span.End()

	scope, err := resolveScope(actor, storeID)
	if err != nil {
		return nil, err
	}
	return readThrough(ctx, s, scope, constants.ReportDeliveryPerformance, func(ctx context.Context) (*domain.DeliveryPerformance, error) {
		return s.queries.DeliveryPerformance(ctx, scope)
	})
}
