// internal/gateway/handler.go
package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"dispatch/internal/pkg/apperr"
	"dispatch/internal/pkg/constants"
	"dispatch/internal/pkg/httpx"
	"dispatch/internal/pkg/logger"
	identity "dispatch/internal/service/identity/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 跨域控制交给前置网关
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TokenVerifier 校验 bearer token，由 identity 应用服务实现。
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*identity.Identity, error)
}

// WSHandler 处理 WebSocket 握手：校验 token、判定通道权限、挂入 Hub。
type WSHandler struct {
	hub      *Hub
	verifier TokenVerifier
}

func NewWSHandler(hub *Hub, verifier TokenVerifier) *WSHandler {
	return &WSHandler{hub: hub, verifier: verifier}
}

// RegisterRoutes 注册 WebSocket 路由。
func (h *WSHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ws", h.serveWS)
}

// authorizeChannel 判定行为主体能否订阅给定通道。
// 管理员任意；门店工作人员仅限自己门店的通道。
func authorizeChannel(actor identity.Identity, channel string) error {
	if actor.Role == identity.RoleAdmin {
		return nil
	}
	if channel == constants.AdminChannel {
		return identity.ErrAccessDenied
	}
	if actor.Role.IsStaff() && actor.StoreID != nil && channel == constants.StoreChannel(*actor.StoreID) {
		return nil
	}
	return identity.ErrAccessDenied
}

// serveWS 执行握手。浏览器的 WebSocket API 不能携带自定义头，
// 因此 token 与通道都通过查询参数传递。
func (h *WSHandler) serveWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		if header := c.GetHeader("Authorization"); header != "" {
			token, _ = strings.CutPrefix(header, "Bearer ")
		}
	}
	if token == "" {
		httpx.RespondError(c, apperr.New(apperr.Unauthorized, "missing token"))
		return
	}

	actor, err := h.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		httpx.RespondError(c, err)
		return
	}

	channel := c.Query("channel")
	if channel == "" {
		httpx.RespondError(c, apperr.ValidationErr(map[string]string{"channel": "is required"}))
		return
	}
	if err := authorizeChannel(*actor, channel); err != nil {
		httpx.RespondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Ctx(c.Request.Context()).Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(h.hub, conn, channel)
	if !h.hub.Attach(client) {
		conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}
