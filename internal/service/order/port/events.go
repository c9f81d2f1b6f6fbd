// internal/service/order/port/events.go
package port

import (
	"context"

	"dispatch/internal/service/order/domain"
)

// EventPublisher 把订单生命周期事件发布给实时订阅方。
// 与缓存失效一样是提交后的尽力而为副作用。
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.OrderEvent) error
}
