// internal/service/order/interfaces/http_handler.go
package interfaces

import (
	"github.com/gin-gonic/gin"

	"dispatch/internal/pkg/httpx"
	identity "dispatch/internal/service/identity/domain"
	identityhttp "dispatch/internal/service/identity/interfaces"
	"dispatch/internal/service/order/application"
	"dispatch/internal/service/order/domain"
)

// OrderHandler 封装了订单生命周期的 HTTP 处理器。
// 所有路由都要求已认证；细粒度的角色/门店判定下沉到应用层守卫。
type OrderHandler struct {
	service *application.OrderApplicationService
}

func NewOrderHandler(service *application.OrderApplicationService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes 注册订单路由。auth 由调用方传入，保证全部路由共用同一套认证中间件。
func (h *OrderHandler) RegisterRoutes(r *gin.RouterGroup, auth gin.HandlerFunc) {
	r.POST("/stores/:storeId/orders", auth, h.create)
	r.GET("/stores/:storeId/orders", auth, h.listByStore)
	r.GET("/orders", auth, h.list)
	r.GET("/orders/:orderId", auth, h.get)
	r.PUT("/orders/:orderId", auth, h.edit)
	r.DELETE("/orders/:orderId", auth, h.remove)
	r.POST("/orders/:orderId/assign", auth, h.assign)
	r.POST("/orders/:orderId/out-for-delivery", auth, h.startDelivery)
	r.POST("/orders/:orderId/deliver", auth, h.deliver)
	r.POST("/orders/:orderId/cancel", auth, h.cancel)
	r.POST("/orders/:orderId/return", auth, h.processReturn)
}

func (h *OrderHandler) create(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	storeID, err := httpx.ParseUintParam(c, "storeId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	var req application.CreateOrderRequest
	if err := httpx.BindJSON(c, &req); err != nil {
		httpx.RespondError(c, err)
		return
	}
	view, err := h.service.Create(c.Request.Context(), actor, storeID, &req)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(201, view)
}

func (h *OrderHandler) get(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	orderID, err := httpx.ParseUintParam(c, "orderId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	view, err := h.service.Get(c.Request.Context(), actor, orderID)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, view)
}

func (h *OrderHandler) listByStore(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	storeID, err := httpx.ParseUintParam(c, "storeId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	filter, err := parseListFilter(c)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	filter.StoreID = &storeID
	h.respondList(c, actor, filter)
}

func (h *OrderHandler) list(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	filter, err := parseListFilter(c)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	h.respondList(c, actor, filter)
}

func (h *OrderHandler) respondList(c *gin.Context, actor identity.Identity, filter domain.ListFilter) {
	views, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, gin.H{"orders": views, "count": len(views)})
}

func (h *OrderHandler) edit(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	orderID, err := httpx.ParseUintParam(c, "orderId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	var req application.EditOrderRequest
	if err := httpx.BindJSON(c, &req); err != nil {
		httpx.RespondError(c, err)
		return
	}
	view, err := h.service.Edit(c.Request.Context(), actor, orderID, &req)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, view)
}

func (h *OrderHandler) remove(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	orderID, err := httpx.ParseUintParam(c, "orderId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, orderID); err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "deleted"})
}

func (h *OrderHandler) assign(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	orderID, err := httpx.ParseUintParam(c, "orderId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	var req application.AssignRequest
	if err := httpx.BindJSON(c, &req); err != nil {
		httpx.RespondError(c, err)
		return
	}
	view, err := h.service.Assign(c.Request.Context(), actor, orderID, &req)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, view)
}

func (h *OrderHandler) startDelivery(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	orderID, err := httpx.ParseUintParam(c, "orderId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	view, err := h.service.StartDelivery(c.Request.Context(), actor, orderID)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, view)
}

func (h *OrderHandler) deliver(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	orderID, err := httpx.ParseUintParam(c, "orderId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	var req application.DeliverRequest
	if err := httpx.BindJSON(c, &req); err != nil {
		httpx.RespondError(c, err)
		return
	}
	view, err := h.service.Deliver(c.Request.Context(), actor, orderID, &req)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, view)
}

func (h *OrderHandler) cancel(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	orderID, err := httpx.ParseUintParam(c, "orderId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	var req application.CancelRequest
	if err := httpx.BindJSON(c, &req); err != nil {
		httpx.RespondError(c, err)
		return
	}
	view, err := h.service.Cancel(c.Request.Context(), actor, orderID, &req)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, view)
}

func (h *OrderHandler) processReturn(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	orderID, err := httpx.ParseUintParam(c, "orderId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	var req application.ReturnRequest
	if err := httpx.BindJSON(c, &req); err != nil {
		httpx.RespondError(c, err)
		return
	}
	view, err := h.service.Return(c.Request.Context(), actor, orderID, &req)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, view)
}

// parseListFilter 解析列表查询参数。非法的 status 直接拒绝而不是静默忽略。
func parseListFilter(c *gin.Context) (domain.ListFilter, error) {
	var filter domain.ListFilter
	if raw := c.Query("status"); raw != "" {
		status := domain.Status(raw)
		if !status.Valid() {
			return filter, httpx.InvalidQueryErr("status", raw)
		}
		filter.Status = &status
	}
	if raw := c.Query("storeId"); raw != "" {
		id, err := httpx.ParseUintQuery(c, "storeId")
		if err != nil {
			return filter, err
		}
		filter.StoreID = &id
	}
	if raw := c.Query("customerId"); raw != "" {
		id, err := httpx.ParseUintQuery(c, "customerId")
		if err != nil {
			return filter, err
		}
		filter.CustomerID = &id
	}
	if raw := c.Query("deliveryPartnerId"); raw != "" {
		id, err := httpx.ParseUintQuery(c, "deliveryPartnerId")
		if err != nil {
			return filter, err
		}
		filter.DeliveryPartnerID = &id
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := httpx.ParseIntQuery(c, "limit")
		if err != nil {
			return filter, err
		}
		filter.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := httpx.ParseIntQuery(c, "offset")
		if err != nil {
			return filter, err
		}
		filter.Offset = offset
	}
	return filter, nil
}
