// internal/gateway/hub.go
package gateway

import (
	"context"
	"sync"

	"dispatch/internal/pkg/logger"
)

// broadcast 是一次指向单个通道的推送。
type broadcast struct {
	channel string
	payload []byte
}

// Hub 维护所有活跃连接，按通道分组广播。
// 注册/注销/广播都经由 run 循环串行处理，客户端集合不加锁。
type Hub struct {
	channels   map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcasts chan broadcast

	done chan struct{}
	once sync.Once
}

func NewHub() *Hub {
	return &Hub{
		channels:   make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcasts: make(chan broadcast, 256),
		done:       make(chan struct{}),
	}
}

// Run 驱动分发循环，ctx 取消时关闭所有连接后返回。
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			clients, ok := h.channels[client.channel]
			if !ok {
				clients = make(map[*Client]struct{})
				h.channels[client.channel] = clients
			}
			clients[client] = struct{}{}
			wsConnections.WithLabelValues(client.channel).Inc()
			logger.Logger.Info().Str("channel", client.channel).Int("clients", len(clients)).Msg("websocket client joined")

		case client := <-h.unregister:
			h.drop(client)

		case msg := <-h.broadcasts:
			for client := range h.channels[msg.channel] {
				select {
				case client.send <- msg.payload:
				default:
					// 消费不过来的慢客户端直接断开，不阻塞整个通道
					eventsDropped.Inc()
					h.drop(client)
				}
			}

		case <-ctx.Done():
			for _, clients := range h.channels {
				for client := range clients {
					h.drop(client)
				}
			}
			h.once.Do(func() { close(h.done) })
			return
		}
	}
}

// drop 把客户端移出通道并关闭其发送缓冲。
func (h *Hub) drop(client *Client) {
	clients, ok := h.channels[client.channel]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.channels, client.channel)
	}
	close(client.send)
	wsConnections.WithLabelValues(client.channel).Dec()
	logger.Logger.Info().Str("channel", client.channel).Msg("websocket client left")
}

// Broadcast 把消息投递给订阅了该通道的全部客户端。Hub 已停止时丢弃。
func (h *Hub) Broadcast(channel string, payload []byte) {
	select {
	case h.broadcasts <- broadcast{channel: channel, payload: payload}:
	case <-h.done:
	}
}

// Attach 把新客户端挂入分发循环。Hub 已停止时返回 false，调用方应关闭连接。
func (h *Hub) Attach(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}
