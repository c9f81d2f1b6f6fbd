// internal/service/order/domain/event.go
package domain

import (
	"time"

	"dispatch/internal/pkg/constants"
)

// OrderEvent 是订单生命周期事件的统一载体。
// 事务提交后发布到消息队列，由事件网关按门店通道推送给在线客户端。
type OrderEvent struct {
	Name    string     `json:"name"`
	StoreID uint       `json:"storeId"`
	OrderID uint       `json:"orderId"`
	At      time.Time  `json:"at"`
	Order   *OrderView `json:"order"`
}

// OrderView 是事件载荷中的订单快照，与 REST 响应保持同一形状。
type OrderView struct {
	ID                uint            `json:"id"`
	OrderNumber       string          `json:"orderNumber"`
	CustomerID        uint            `json:"customerId"`
	StoreID           uint            `json:"storeId"`
	Status            Status          `json:"status"`
	InvoiceAmount     float64         `json:"invoiceAmount"`
	PaymentMethod     *PaymentMethod  `json:"paymentMethod,omitempty"`
	PaymentStatus     PaymentStatus   `json:"paymentStatus"`
	DeliveryPartnerID *uint           `json:"deliveryPartnerId,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	Items             []OrderItemView `json:"items"`
	AssignedAt        *time.Time      `json:"assignedAt,omitempty"`
	OutForDeliveryAt  *time.Time      `json:"outForDeliveryAt,omitempty"`
	DeliveredAt       *time.Time      `json:"deliveredAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

type OrderItemView struct {
	ID          uint   `json:"id"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
}

// ToView 生成订单快照。
func (o *Order) ToView() *OrderView {
	items := make([]OrderItemView, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemView{ID: it.ID, Description: it.Description, Quantity: it.Quantity})
	}
	return &OrderView{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		CustomerID:        o.CustomerID,
		StoreID:           o.StoreID,
		Status:            o.Status,
		InvoiceAmount:     o.InvoiceAmount,
		PaymentMethod:     o.PaymentMethod,
		PaymentStatus:     o.PaymentStatus,
		DeliveryPartnerID: o.DeliveryPartnerID,
		Notes:             o.Notes,
		Items:             items,
		AssignedAt:        o.AssignedAt,
		OutForDeliveryAt:  o.OutForDeliveryAt,
		DeliveredAt:       o.DeliveredAt,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

// NewOrderEvent 构造一个生命周期事件。
func NewOrderEvent(name string, o *Order) *OrderEvent {
	return &OrderEvent{
		Name:    name,
		StoreID: o.StoreID,
		OrderID: o.ID,
		At:      time.Now(),
		Order:   o.ToView(),
	}
}

// eventNameByLifecycle 把状态机事件映射到对外事件名。
var eventNameByLifecycle = map[Event]string{
	EventAssign:        constants.EventOrderAssigned,
	EventStartDelivery: constants.EventOrderOutForDelivery,
	EventDeliver:       constants.EventOrderDelivered,
	EventCancel:        constants.EventOrderCancelled,
	EventReturn:        constants.EventOrderReturned,
}

// EventName 返回状态机事件对应的对外事件名。
func EventName(event Event) string {
	return eventNameByLifecycle[event]
}
