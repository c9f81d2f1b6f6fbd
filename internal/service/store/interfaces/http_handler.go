// internal/service/store/interfaces/http_handler.go
package interfaces

import (
	"github.com/gin-gonic/gin"

	"dispatch/internal/pkg/httpx"
	identityhttp "dispatch/internal/service/identity/interfaces"
	"dispatch/internal/service/store/application"
)

// StoreHandler 封装门店管理的 HTTP 处理器。
type StoreHandler struct {
	service *application.StoreApplicationService
}

func NewStoreHandler(service *application.StoreApplicationService) *StoreHandler {
	return &StoreHandler{service: service}
}

// RegisterRoutes 注册门店路由。
func (h *StoreHandler) RegisterRoutes(r *gin.RouterGroup, auth gin.HandlerFunc) {
	r.POST("/stores", auth, h.create)
	r.GET("/stores", auth, h.list)
	r.GET("/stores/:storeId", auth, h.get)
	r.PUT("/stores/:storeId", auth, h.update)
	r.DELETE("/stores/:storeId", auth, h.remove)
}

func (h *StoreHandler) create(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	var req application.StoreRequest
	if err := httpx.BindJSON(c, &req); err != nil {
		httpx.RespondError(c, err)
		return
	}
	view, err := h.service.Create(c.Request.Context(), actor, &req)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(201, view)
}

func (h *StoreHandler) list(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	views, err := h.service.List(c.Request.Context(), actor, c.Query("includeInactive") == "true")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, gin.H{"stores": views, "count": len(views)})
}

func (h *StoreHandler) get(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	storeID, err := httpx.ParseUintParam(c, "storeId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	view, err := h.service.Get(c.Request.Context(), actor, storeID)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, view)
}

func (h *StoreHandler) update(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	storeID, err := httpx.ParseUintParam(c, "storeId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	var req application.StoreRequest
	if err := httpx.BindJSON(c, &req); err != nil {
		httpx.RespondError(c, err)
		return
	}
	view, err := h.service.Update(c.Request.Context(), actor, storeID, &req)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, view)
}

func (h *StoreHandler) remove(c *gin.Context) {
	actor, _ := identityhttp.IdentityFrom(c)
	storeID, err := httpx.ParseUintParam(c, "storeId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	deactivated, err := h.service.Remove(c.Request.Context(), actor, storeID)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	status := "deleted"
	if deactivated {
		status = "deactivated"
	}
	c.JSON(200, gin.H{"status": status})
}
