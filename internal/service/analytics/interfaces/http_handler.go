// internal/service/analytics/interfaces/http_handler.go
package interfaces

import (
	"github.com/gin-gonic/gin"

	"dispatch/internal/pkg/httpx"
	"dispatch/internal/service/analytics/application"
	identity "dispatch/internal/service/identity/domain"
	identityhttp "dispatch/internal/service/identity/interfaces"
)

// AnalyticsHandler 暴露门店与全局两组报表路由。
// 全局路由不带 storeId，应用层据此限定为管理员。
type AnalyticsHandler struct {
	service *application.AnalyticsApplicationService
}

func NewAnalyticsHandler(service *application.AnalyticsApplicationService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// RegisterRoutes 注册报表路由。
func (h *AnalyticsHandler) RegisterRoutes(r *gin.RouterGroup, auth gin.HandlerFunc) {
	store := r.Group("/stores/:storeId/analytics", auth)
	store.GET("/dashboard", h.report(h.dashboard))
	store.GET("/sales/daily", h.report(h.salesDaily))
	store.GET("/sales/weekly", h.report(h.salesWeekly))
	store.GET("/payment-methods", h.report(h.paymentBreakdown))
	store.GET("/status-breakdown", h.report(h.statusBreakdown))
	store.GET("/top-customers", h.report(h.topCustomers))
	store.GET("/delivery-performance", h.report(h.deliveryPerformance))

	global := r.Group("/analytics", auth)
	global.GET("/dashboard", h.report(h.dashboard))
	global.GET("/sales/daily", h.report(h.salesDaily))
	global.GET("/sales/weekly", h.report(h.salesWeekly))
	global.GET("/payment-methods", h.report(h.paymentBreakdown))
	global.GET("/status-breakdown", h.report(h.statusBreakdown))
	global.GET("/top-customers", h.report(h.topCustomers))
	global.GET("/delivery-performance", h.report(h.deliveryPerformance))
}

type reportFunc func(c *gin.Context, actor identity.Identity, storeID *uint) (interface{}, error)

// report 统一解析 storeId（门店路由才有）并渲染结果。
func (h *AnalyticsHandler) report(fn reportFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := identityhttp.IdentityFrom(c)
		var storeID *uint
		if c.Param("storeId") != "" {
			id, err := httpx.ParseUintParam(c, "storeId")
			if err != nil {
				httpx.RespondError(c, err)
				return
			}
			storeID = &id
		}
		result, err := fn(c, actor, storeID)
		if err != nil {
			httpx.RespondError(c, err)
			return
		}
		c.JSON(200, result)
	}
}

func (h *AnalyticsHandler) dashboard(c *gin.Context, actor identity.Identity, storeID *uint) (interface{}, error) {
	return h.service.Dashboard(c.Request.Context(), actor, storeID)
}

func (h *AnalyticsHandler) salesDaily(c *gin.Context, actor identity.Identity, storeID *uint) (interface{}, error) {
	days, err := optionalInt(c, "days")
	if err != nil {
		return nil, err
	}
	return h.service.SalesDaily(c.Request.Context(), actor, storeID, days)
}

func (h *AnalyticsHandler) salesWeekly(c *gin.Context, actor identity.Identity, storeID *uint) (interface{}, error) {
	weeks, err := optionalInt(c, "weeks")
	if err != nil {
		return nil, err
	}
	return h.service.SalesWeekly(c.Request.Context(), actor, storeID, weeks)
}

func (h *AnalyticsHandler) paymentBreakdown(c *gin.Context, actor identity.Identity, storeID *uint) (interface{}, error) {
	return h.service.PaymentBreakdown(c.Request.Context(), actor, storeID)
}

func (h *AnalyticsHandler) statusBreakdown(c *gin.Context, actor identity.Identity, storeID *uint) (interface{}, error) {
	return h.service.StatusBreakdown(c.Request.Context(), actor, storeID)
}

func (h *AnalyticsHandler) topCustomers(c *gin.Context, actor identity.Identity, storeID *uint) (interface{}, error) {
	limit, err := optionalInt(c, "limit")
	if err != nil {
		return nil, err
	}
	return h.service.TopCustomers(c.Request.Context(), actor, storeID, limit)
}

func (h *AnalyticsHandler) deliveryPerformance(c *gin.Context, actor identity.Identity, storeID *uint) (interface{}, error) {
	return h.service.DeliveryPerformance(c.Request.Context(), actor, storeID)
}

func optionalInt(c *gin.Context, name string) (int, error) {
	if c.Query(name) == "" {
		return 0, nil
	}
	return httpx.ParseIntQuery(c, name)
}
