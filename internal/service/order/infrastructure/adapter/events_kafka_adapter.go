// internal/service/order/infrastructure/adapter/events_kafka_adapter.go
package adapter

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/segmentio/kafka-go"

	"dispatch/internal/pkg/mq"
	"dispatch/internal/service/order/domain"
)

// KafkaEventPublisher 把订单生命周期事件写入 Kafka。
// 消息 key 为门店 ID，Hash balancer 保证同一门店事件落在同一分区内有序。
type KafkaEventPublisher struct {
	writer *kafka.Writer
}

func NewKafkaEventPublisher(writer *kafka.Writer) *KafkaEventPublisher {
	return &KafkaEventPublisher{writer: writer}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, event *domain.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	key := []byte(strconv.FormatUint(uint64(event.StoreID), 10))
	return mq.ProduceMessage(ctx, p.writer, key, payload)
}
