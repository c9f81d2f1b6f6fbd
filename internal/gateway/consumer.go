// internal/gateway/consumer.go
package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"dispatch/internal/pkg/constants"
	"dispatch/internal/pkg/logger"
	"dispatch/internal/pkg/mq"
	orderdomain "dispatch/internal/service/order/domain"
)

// EventConsumer 消费订单生命周期事件并广播到 Hub。
// 每个事件推送到对应门店通道和聚合的管理通道。
type EventConsumer struct {
	reader  *kafka.Reader
	hub     *Hub
	wg      sync.WaitGroup
	stopped atomic.Bool
}

func NewEventConsumer(reader *kafka.Reader, hub *Hub) *EventConsumer {
	return &EventConsumer{reader: reader, hub: hub}
}

// Start 启动消费循环。长期运行，Stop 或 ctx 取消时退出。
func (c *EventConsumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		logger.Logger.Info().Str("topic", c.reader.Config().Topic).Msg("event consumer started")
		for {
			if c.stopped.Load() {
				return
			}
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || c.stopped.Load() {
					logger.Logger.Info().Msg("event consumer shutting down")
					return
				}
				logger.Logger.Error().Err(err).Msg("failed to fetch message, retrying")
				time.Sleep(time.Second)
				continue
			}

			c.processMessage(ctx, msg)

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				logger.Logger.Error().Err(err).Msg("failed to commit offset")
			}
		}
	}()
}

// Stop 优雅停止消费者并等待在途消息处理完成。
func (c *EventConsumer) Stop() {
	c.stopped.Store(true)
	c.reader.Close()
	c.wg.Wait()
	logger.Logger.Info().Msg("event consumer stopped")
}

// processMessage 反序列化事件并广播。坏消息记日志后跳过，不阻塞消费。
func (c *EventConsumer) processMessage(parentCtx context.Context, msg kafka.Message) {
	carrier := mq.KafkaHeaderCarrier(msg.Headers)
	ctx := otel.GetTextMapPropagator().Extract(parentCtx, &carrier)

	var event orderdomain.OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("skipping malformed order event")
		return
	}

	eventsConsumed.WithLabelValues(event.Name).Inc()
	c.hub.Broadcast(constants.StoreChannel(event.StoreID), msg.Value)
	c.hub.Broadcast(constants.AdminChannel, msg.Value)
	logger.Ctx(ctx).Debug().
		Str("event", event.Name).
		Uint("store_id", event.StoreID).
		Uint("order_id", event.OrderID).
		Msg("event broadcast")
}
