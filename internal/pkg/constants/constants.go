// internal/pkg/constants/constants.go
package constants

import "fmt"

// 订单生命周期事件名。事件网关原样转发给订阅的客户端。
const (
	EventOrderCreated        = "order-created"
	EventOrderAssigned       = "order-assigned"
	EventOrderOutForDelivery = "order-out-for-delivery"
	EventOrderDelivered      = "order-delivered"
	EventOrderCancelled      = "order-cancelled"
	EventOrderReturned       = "order-returned"
)

// 推送通道。每个门店一个通道，另有一个聚合全部事件的管理通道。
const AdminChannel = "admin"

// StoreChannel 返回门店事件通道名。
func StoreChannel(storeID uint) string {
	return fmt.Sprintf("store:%d", storeID)
}

// 报表缓存 key。订单引擎在提交后按门店失效这些 key，
// analytics 服务用同样的 key 做 read-through。
const (
	ReportDashboard           = "dashboard"
	ReportSalesDaily          = "sales-daily"
	ReportSalesWeekly         = "sales-weekly"
	ReportPaymentBreakdown    = "payment-breakdown"
	ReportStatusBreakdown     = "status-breakdown"
	ReportTopCustomers        = "top-customers"
	ReportDeliveryPerformance = "delivery-performance"
)

// AllReports 是订单写路径需要失效的全部报表名。
var AllReports = []string{
	ReportDashboard,
	ReportSalesDaily,
	ReportSalesWeekly,
	ReportPaymentBreakdown,
	ReportStatusBreakdown,
	ReportTopCustomers,
	ReportDeliveryPerformance,
}

// ReportCacheKey 构造某门店某报表的缓存 key。
func ReportCacheKey(storeID uint, report string) string {
	return fmt.Sprintf("analytics:store:%d:%s", storeID, report)
}

// GlobalReportCacheKey 构造不带门店维度的缓存 key（管理员全局视图）。
func GlobalReportCacheKey(report string) string {
	return fmt.Sprintf("analytics:global:%s", report)
}
