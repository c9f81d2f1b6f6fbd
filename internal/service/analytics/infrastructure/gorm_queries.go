// internal/service/analytics/infrastructure/gorm_queries.go
package infrastructure

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"dispatch/internal/pkg/apperr"
	"dispatch/internal/service/analytics/domain"
)

// GormReportQueries 以只读聚合查询实现 ReportQueries。
// 所有查询都直接作用于各服务拥有的表，不经过它们的仓储层。
type GormReportQueries struct {
	db *gorm.DB
}

func NewGormReportQueries(db *gorm.DB) *GormReportQueries {
	return &GormReportQueries{db: db}
}

// scopedOrders 返回按范围过滤的 orders 查询。
func (r *GormReportQueries) scopedOrders(ctx context.Context, scope domain.Scope) *gorm.DB {
	q := r.db.WithContext(ctx).Table("orders")
	if scope.StoreID != nil {
		q = q.Where("orders.store_id = ?", *scope.StoreID)
	}
	return q
}

func (r *GormReportQueries) scopedCustomers(ctx context.Context, scope domain.Scope) *gorm.DB {
	q := r.db.WithContext(ctx).Table("customers")
	if scope.StoreID != nil {
		q = q.Where("store_id = ?", *scope.StoreID)
	}
	return q
}

// Dashboard 并行执行各个概览统计，任一失败则整体失败。
func (r *GormReportQueries) Dashboard(ctx context.Context, scope domain.Scope) (*domain.DashboardSummary, error) {
	var summary domain.DashboardSummary
	today := time.Now().Truncate(24 * time.Hour)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.scopedOrders(gctx, scope).Count(&summary.TotalOrders).Error
	})
	g.Go(func() error {
		return r.scopedOrders(gctx, scope).
			Where("status IN ?", []string{"CREATED", "ASSIGNED", "OUT_FOR_DELIVERY"}).
			Count(&summary.ActiveOrders).Error
	})
	g.Go(func() error {
		return r.scopedOrders(gctx, scope).
			Where("status = ? AND delivered_at >= ?", "DELIVERED", today).
			Count(&summary.DeliveredToday).Error
	})
	g.Go(func() error {
		var sales *float64
		err := r.scopedOrders(gctx, scope).
			Where("delivered_at >= ?", today).
			Select("SUM(invoice_amount)").
			Scan(&sales).Error
		if err == nil && sales != nil {
			summary.SalesToday = *sales
		}
		return err
	})
	g.Go(func() error {
		var dues *float64
		err := r.scopedCustomers(gctx, scope).Select("SUM(total_dues)").Scan(&dues).Error
		if err == nil && dues != nil {
			summary.OutstandingDues = *dues
		}
		return err
	})
	g.Go(func() error {
		return r.scopedCustomers(gctx, scope).Count(&summary.ActiveCustomers).Error
	})

	if err := g.Wait(); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "dashboard query failed", err)
	}
	return &summary, nil
}

func (r *GormReportQueries) SalesDaily(ctx context.Context, scope domain.Scope, days int) ([]domain.SalesPoint, error) {
	since := time.Now().AddDate(0, 0, -days)
	var points []domain.SalesPoint
	err := r.scopedOrders(ctx, scope).
		Select("DATE_FORMAT(delivered_at, '%Y-%m-%d') AS period, COUNT(*) AS orders, SUM(invoice_amount) AS sales").
		Where("delivered_at IS NOT NULL AND delivered_at >= ?", since).
		Group("period").
		Order("period ASC").
		Scan(&points).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "daily sales query failed", err)
	}
	return points, nil
}

func (r *GormReportQueries) SalesWeekly(ctx context.Context, scope domain.Scope, weeks int) ([]domain.SalesPoint, error) {
	since := time.Now().AddDate(0, 0, -7*weeks)
	var points []domain.SalesPoint
	err := r.scopedOrders(ctx, scope).
		Select("DATE_FORMAT(delivered_at, '%x-W%v') AS period, COUNT(*) AS orders, SUM(invoice_amount) AS sales").
		Where("delivered_at IS NOT NULL AND delivered_at >= ?", since).
		Group("period").
		Order("period ASC").
		Scan(&points).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "weekly sales query failed", err)
	}
	return points, nil
}

func (r *GormReportQueries) PaymentBreakdown(ctx context.Context, scope domain.Scope) ([]domain.BreakdownSlice, error) {
	var slices []domain.BreakdownSlice
	err := r.scopedOrders(ctx, scope).
		Select("payment_method AS `key`, COUNT(*) AS orders, SUM(invoice_amount) AS amount").
		Where("payment_method IS NOT NULL").
		Group("payment_method").
		Order("orders DESC").
		Scan(&slices).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "payment breakdown query failed", err)
	}
	return slices, nil
}

func (r *GormReportQueries) StatusBreakdown(ctx context.Context, scope domain.Scope) ([]domain.BreakdownSlice, error) {
	var slices []domain.BreakdownSlice
	err := r.scopedOrders(ctx, scope).
		Select("status AS `key`, COUNT(*) AS orders, SUM(invoice_amount) AS amount").
		Group("status").
		Order("orders DESC").
		Scan(&slices).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "status breakdown query failed", err)
	}
	return slices, nil
}

func (r *GormReportQueries) TopCustomers(ctx context.Context, scope domain.Scope, limit int) ([]domain.TopCustomer, error) {
	var customers []domain.TopCustomer
	err := r.scopedCustomers(ctx, scope).
		Select("id AS customer_id, name, total_orders AS orders, total_sales AS sales, total_dues AS dues").
		Order("total_sales DESC").
		Limit(limit).
		Scan(&customers).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "top customers query failed", err)
	}
	return customers, nil
}

func (r *GormReportQueries) DeliveryPerformance(ctx context.Context, scope domain.Scope) (*domain.DeliveryPerformance, error) {
	type row struct {
		Delivered  int64
		AvgMinutes *float64
		MaxMinutes *int
		Under30    *int64
	}
	q := r.db.WithContext(ctx).Table("deliveries").
		Joins("JOIN orders ON orders.id = deliveries.order_id").
		Where("deliveries.delivery_time_minutes IS NOT NULL")
	if scope.StoreID != nil {
		q = q.Where("orders.store_id = ?", *scope.StoreID)
	}

	var res row
	err := q.Select(
		"COUNT(*) AS delivered, " +
			"AVG(deliveries.delivery_time_minutes) AS avg_minutes, " +
			"MAX(deliveries.delivery_time_minutes) AS max_minutes, " +
			"SUM(CASE WHEN deliveries.delivery_time_minutes <= 30 THEN 1 ELSE 0 END) AS under30",
	).Scan(&res).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "delivery performance query failed", err)
	}

	perf := &domain.DeliveryPerformance{Delivered: res.Delivered}
	if res.AvgMinutes != nil {
		perf.AvgMinutes = *res.AvgMinutes
	}
	if res.MaxMinutes != nil {
		perf.MaxMinutes = *res.MaxMinutes
	}
	if res.Delivered > 0 && res.Under30 != nil {
		perf.Under30Percent = 100 * float64(*res.Under30) / float64(res.Delivered)
	}
	return perf, nil
}
