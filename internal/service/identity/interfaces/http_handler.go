// internal/service/identity/interfaces/http_handler.go
package interfaces

import (
	"strings"

	"github.com/gin-gonic/gin"

	"dispatch/internal/pkg/apperr"
	"dispatch/internal/pkg/httpx"
	"dispatch/internal/service/identity/application"
	"dispatch/internal/service/identity/domain"
)

const identityContextKey = "identity"
const tokenContextKey = "bearer_token"

// IdentityHandler 封装了认证相关的 HTTP 处理器。
type IdentityHandler struct {
	service *application.IdentityApplicationService
}

func NewIdentityHandler(service *application.IdentityApplicationService) *IdentityHandler {
	return &IdentityHandler{service: service}
}

// RegisterRoutes 注册认证路由。
func (h *IdentityHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/auth/login", h.login)
	r.POST("/auth/logout", h.AuthRequired(), h.logout)
	r.POST("/staff", h.AuthRequired(), RequireRoles(domain.RoleAdmin, domain.RoleStoreManager), h.registerStaff)
	r.POST("/customers/:customerId/account", h.AuthRequired(), RequireRoles(domain.RoleAdmin, domain.RoleStoreManager), h.registerCustomerAccount)
	r.GET("/stores/:storeId/delivery-partners", h.AuthRequired(), RequireRoles(domain.RoleAdmin, domain.RoleStoreManager), h.listDeliveryPartners)
	r.PATCH("/staff/:userId/active", h.AuthRequired(), RequireRoles(domain.RoleAdmin, domain.RoleStoreManager), h.setStaffActive)
}

// AuthRequired 解析 Authorization 头，校验 token 并把 Identity 放入请求上下文。
// 每个请求只解析一次，后续所有守卫都从上下文取 Identity。
func (h *IdentityHandler) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			httpx.RespondError(c, apperr.New(apperr.Unauthorized, "missing bearer token"))
			return
		}
		identity, err := h.service.Verify(c.Request.Context(), token)
		if err != nil {
			httpx.RespondError(c, err)
			return
		}
		c.Set(identityContextKey, *identity)
		c.Set(tokenContextKey, token)
		c.Next()
	}
}

// RequireRoles 限制路由只对给定角色开放。
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		actor, ok := IdentityFrom(c)
		if !ok {
			httpx.RespondError(c, apperr.New(apperr.Unauthorized, "missing bearer token"))
			return
		}
		if _, ok := allowed[actor.Role]; !ok {
			httpx.RespondError(c, apperr.New(apperr.Forbidden, "access denied"))
			return
		}
		c.Next()
	}
}

// IdentityFrom 从请求上下文取出已解析的行为主体。
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityContextKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}

func (h *IdentityHandler) login(c *gin.Context) {
	var req application.LoginRequest
	if err := httpx.BindJSON(c, &req); err != nil {
		httpx.RespondError(c, err)
		return
	}
	resp, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, resp)
}

func (h *IdentityHandler) logout(c *gin.Context) {
	token := c.GetString(tokenContextKey)
	if err := h.service.Logout(c.Request.Context(), token); err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}

func (h *IdentityHandler) registerStaff(c *gin.Context) {
	actor, _ := IdentityFrom(c)
	var req application.RegisterStaffRequest
	if err := httpx.BindJSON(c, &req); err != nil {
		httpx.RespondError(c, err)
		return
	}
	view, err := h.service.RegisterStaff(c.Request.Context(), actor, &req)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(201, view)
}

func (h *IdentityHandler) registerCustomerAccount(c *gin.Context) {
	actor, _ := IdentityFrom(c)
	customerID, err := httpx.ParseUintParam(c, "customerId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	var req application.RegisterCustomerAccountRequest
	if err := httpx.BindJSON(c, &req); err != nil {
		httpx.RespondError(c, err)
		return
	}
	view, err := h.service.RegisterCustomerAccount(c.Request.Context(), actor, customerID, &req)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(201, view)
}

func (h *IdentityHandler) listDeliveryPartners(c *gin.Context) {
	actor, _ := IdentityFrom(c)
	storeID, err := httpx.ParseUintParam(c, "storeId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	views, err := h.service.ListDeliveryPartners(c.Request.Context(), actor, storeID)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, gin.H{"partners": views})
}

func (h *IdentityHandler) setStaffActive(c *gin.Context) {
	actor, _ := IdentityFrom(c)
	userID, err := httpx.ParseUintParam(c, "userId")
	if err != nil {
		httpx.RespondError(c, err)
		return
	}
	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := httpx.BindJSON(c, &req); err != nil {
		httpx.RespondError(c, err)
		return
	}
	if err := h.service.SetStaffActive(c.Request.Context(), actor, userID, *req.Active); err != nil {
		httpx.RespondError(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}
