// internal/service/analytics/domain/reports.go
package domain

import "context"

// Scope 限定一次报表查询的范围。StoreID 为 nil 表示全局视图（仅管理员）。
type Scope struct {
	StoreID *uint
}

// DashboardSummary 是门店/全局运营概览。
type DashboardSummary struct {
	TotalOrders     int64   `json:"totalOrders"`
	ActiveOrders    int64   `json:"activeOrders"`
	DeliveredToday  int64   `json:"deliveredToday"`
	SalesToday      float64 `json:"salesToday"`
	OutstandingDues float64 `json:"outstandingDues"`
	ActiveCustomers int64   `json:"activeCustomers"`
}

// SalesPoint 是销售时间序列中的一个桶（天或周）。
type SalesPoint struct {
	Period string  `json:"period"` // 2006-01-02 或 ISO 周 2006-W01
	Orders int64   `json:"orders"`
	Sales  float64 `json:"sales"`
}

// BreakdownSlice 是按某个维度（支付方式、状态）的分布切片。
type BreakdownSlice struct {
	Key    string  `json:"key"`
	Orders int64   `json:"orders"`
	Amount float64 `json:"amount"`
}

// TopCustomer 是按累计销售额排序的顾客条目。
type TopCustomer struct {
	CustomerID uint    `json:"customerId"`
	Name       string  `json:"name"`
	Orders     int64   `json:"orders"`
	Sales      float64 `json:"sales"`
	Dues       float64 `json:"dues"`
}

// DeliveryPerformance 汇总配送效率指标。
type DeliveryPerformance struct {
	Delivered      int64   `json:"delivered"`
	AvgMinutes     float64 `json:"avgMinutes"`
	MaxMinutes     int     `json:"maxMinutes"`
	Under30Percent float64 `json:"under30Percent"`
}

// ReportQueries 定义报表的数据库聚合查询，由基础设施层以只读方式实现。
type ReportQueries interface {
	Dashboard(ctx context.Context, scope Scope) (*DashboardSummary, error)
	SalesDaily(ctx context.Context, scope Scope, days int) ([]SalesPoint, error)
	SalesWeekly(ctx context.Context, scope Scope, weeks int) ([]SalesPoint, error)
	PaymentBreakdown(ctx context.Context, scope Scope) ([]BreakdownSlice, error)
	StatusBreakdown(ctx context.Context, scope Scope) ([]BreakdownSlice, error)
	TopCustomers(ctx context.Context, scope Scope, limit int) ([]TopCustomer, error)
	DeliveryPerformance(ctx context.Context, scope Scope) (*DeliveryPerformance, error)
}
