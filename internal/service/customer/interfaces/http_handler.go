// internal/service/customer/interfaces/http_handler.go
package interfaces

import (
	"github.com/gin-gonic/gin"

	"dispatch/internal/pkg/httpx"
	"dispatch/internal/service/customer/application"
	"dispatch/internal/service/customer/domain"
	identityhttp "dispatch/internal/service/identity/interfaces"
)

// CustomerHandler 封装顾客档案与清账的 HTTP 处理器。
type CustomerHandler struct {
	service *application.CustomerApplicationService
}

func NewCustomerHandler(service *application.CustomerApplicationService) *CustomerHandler {
	return &CustomerHandler{service: service}
}

// RegisterRoutes 注册顾客路由。
func (h *CustomerHandler) RegisterRoutes(r *gin.RouterGroup, auth gin.HandlerFunc) {
	r.POST("/stores/:storeId/customers", auth, h.create)
	r.GET("/stores/:storeId/customers", auth, h.list)
	r.GET("/customers/:customerId", auth, h.get)
	r.PUT("/customers/:customerId", auth, h.update)
	r.POST("/customers/:customerId/clear-dues", auth, h.clearDues)
	r.GET("/customers/:customerId/clearances", auth, h.listClearances)
}

func (h *CustomerHandler) create(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	storeID, err := httpx.ParseUintParam(c, "storeId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	var req application.CreateCustomerRequest
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

func (h *CustomerHandler) list(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	storeID, err := httpx.ParseUintParam(c, "storeId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	filter := domain.ListFilter{
		StoreID: storeID,
		Search:  c.Query("search"),
		HasDues: c.Query("hasDues") == "true",
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := httpx.ParseIntQuery(c, "limit")
		if err != nil {
			httpx.RespondError(c, err)
			return
		}
		filter.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := httpx.ParseIntQuery(c, "offset")
		if err != nil {
			httpx.RespondError(c, err)
			return
		}
		filter.Offset = offset
	}
	views, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, gin.H{"customers": views, "count": len(views)})
}

func (h *CustomerHandler) get(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	customerID, err := httpx.ParseUintParam(c, "customerId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	view, err := h.service.Get(c.Request.Context(), actor, customerID)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, view)
}

func (h *CustomerHandler) update(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	customerID, err := httpx.ParseUintParam(c, "customerId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	var req application.UpdateCustomerRequest
	if err := httpx.BindJSON(c, &req); err != nil {
		httpx.RespondError(c, err)
		return
	}
	view, err := h.service.Update(c.Request.Context(), actor, customerID, &req)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, view)
}

func (h *CustomerHandler) clearDues(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	customerID, err := httpx.ParseUintParam(c, "customerId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	var req application.ClearDuesRequest
	if err := httpx.BindJSON(c, &req); err != nil {
		httpx.RespondError(c, err)
		return
	}
	view, err := h.service.ClearDues(c.Request.Context(), actor, customerID, &req)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, view)
}

func (h *CustomerHandler) listClearances(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	customerID, err := httpx.ParseUintParam(c, "customerId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	views, err := h.service.ListClearances(c.Request.Context(), actor, customerID)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, gin.H{"clearances": views, "count": len(views)})
}
