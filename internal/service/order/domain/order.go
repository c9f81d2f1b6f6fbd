// internal/service/order/domain/order.go
package domain

import (
	"fmt"
	"strings"
	"time"

	"dispatch/internal/pkg/apperr"
)

// Order 是订单聚合的根实体。状态只能通过下面的流转方法改变，
// 仓储层不做任何业务判断。
type Order struct {
	ID                uint
	OrderNumber       string // 人类可读编号，全局唯一
	CustomerID        uint
	StoreID           uint
	Status            Status
	InvoiceAmount     float64
	PaymentMethod     *PaymentMethod // 送达前为 nil
	PaymentStatus     PaymentStatus
	DeliveryPartnerID *uint
	Notes             string
	Items             []OrderItem

	AssignedAt       *time.Time
	OutForDeliveryAt *time.Time
	DeliveredAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OrderItem 是订单的行项目，随订单创建/编辑整体替换。
type OrderItem struct {
	ID          uint
	OrderID     uint
	Description string
	Quantity    int
}

// Delivery 是一次订单履约的跟踪记录。订单首次被分配时创建，
// 之后的状态变化更新同一条记录而不是新建。
type Delivery struct {
	ID                  uint
	OrderID             uint
	DeliveryPartnerID   uint
	AssignedAt          time.Time
	OutForDeliveryAt    *time.Time
	DeliveredAt         *time.Time
	DeliveryTimeMinutes *int // deliveredAt − assignedAt，整分钟
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Return 记录一次送达后退货。
type Return struct {
	ID           uint
	OrderID      uint
	Type         ReturnType
	RefundAmount float64
	RefundMethod PaymentMethod
	Reason       string
	CreatedAt    time.Time
}

// BalanceDelta 描述一次流转对顾客累计数据的影响，由调用方在同一事务内应用。
// DuesDelta 为负时，仓储层负责在归零处截断。
type BalanceDelta struct {
	SalesDelta float64
	DuesDelta  float64
}

// NewOrder 是订单的工厂函数。
func NewOrder(orderNumber string, customerID, storeID uint, invoiceAmount float64, items []OrderItem, notes string) (*Order, error) {
	if invoiceAmount <= 0 {
		return nil, apperr.New(apperr.InvalidAmount, "invoice amount must be positive")
	}
	if len(items) == 0 {
		return nil, apperr.New(apperr.Validation, "order must have at least one item")
	}
	now := time.Now()
	return &Order{
		OrderNumber:   orderNumber,
		CustomerID:    customerID,
		StoreID:       storeID,
		Status:        StatusCreated,
		InvoiceAmount: invoiceAmount,
		PaymentStatus: PaymentPending,
		Notes:         notes,
		Items:         items,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// conflictErr 构造"状态冲突"错误，指明当前状态与事件要求的状态。
func conflictErr(current Status, event Event) error {
	required := RequiredStatuses(event)
	names := make([]string, 0, len(required))
	for _, s := range required {
		names = append(names, string(s))
	}
	return apperr.Newf(apperr.Conflict,
		"order is %s, %s requires status %s", current, event, strings.Join(names, " or "))
}

// Assign 将订单分配给配送员，并返回需要创建的 Delivery 记录。
func (o *Order) Assign(partnerID uint, now time.Time) (*Delivery, error) {
	if !CanTransition(o.Status, EventAssign) {
		return nil, conflictErr(o.Status, EventAssign)
	}
	o.Status = StatusAssigned
	o.DeliveryPartnerID = &partnerID
	o.AssignedAt = &now
	o.UpdatedAt = now
	return &Delivery{
		OrderID:           o.ID,
		DeliveryPartnerID: partnerID,
		AssignedAt:        now,
	}, nil
}

// StartDelivery 标记订单开始配送。
func (o *Order) StartDelivery(now time.Time) error {
	if !CanTransition(o.Status, EventStartDelivery) {
		return conflictErr(o.Status, EventStartDelivery)
	}
	o.Status = StatusOutForDelivery
	o.OutForDeliveryAt = &now
	o.UpdatedAt = now
	return nil
}

// Deliver 标记订单送达并记录支付方式。
// 返回对顾客累计数据的影响：销售额增加发票金额；赊账支付同时增加欠款。
func (o *Order) Deliver(method PaymentMethod, now time.Time) (BalanceDelta, error) {
	if !CanTransition(o.Status, EventDeliver) {
		return BalanceDelta{}, conflictErr(o.Status, EventDeliver)
	}
	if !method.Valid() {
		return BalanceDelta{}, apperr.New(apperr.Validation, "invalid payment method")
	}
	o.Status = StatusDelivered
	o.PaymentMethod = &method
	o.PaymentStatus = PaymentPaid
	o.DeliveredAt = &now
	o.UpdatedAt = now

	delta := BalanceDelta{SalesDelta: o.InvoiceAmount}
	if method == PaymentCustomerCredit {
		delta.DuesDelta = o.InvoiceAmount
	}
	return delta, nil
}

// DeliveryTimeMinutes 计算整分钟配送时长。送达前调用返回 0。
func (o *Order) DeliveryTimeMinutes() int {
	if o.AssignedAt == nil || o.DeliveredAt == nil {
		return 0
	}
	return int(o.DeliveredAt.Sub(*o.AssignedAt).Minutes())
}

// Cancel 取消订单。创建后尚未应用任何销售统计，因此无需回滚。
func (o *Order) Cancel(reason string, now time.Time) error {
	if !CanTransition(o.Status, EventCancel) {
		return conflictErr(o.Status, EventCancel)
	}
	o.Status = StatusCancelled
	if reason != "" {
		if o.Notes != "" {
			o.Notes += "\n"
		}
		o.Notes += fmt.Sprintf("cancelled: %s", reason)
	}
	o.UpdatedAt = now
	return nil
}

// ApplyReturn 处理送达后的退货。refundAmount 等于发票金额视为全额退货，
// 小于则为部分退货；超过发票金额直接拒绝。
// 欠款扣减规则：原单为赊账且退款不走赊账，或退款本身走赊账时，欠款减少 refundAmount。
func (o *Order) ApplyReturn(returnType ReturnType, refundAmount float64, refundMethod PaymentMethod, reason string, now time.Time) (*Return, BalanceDelta, error) {
	if !CanTransition(o.Status, EventReturn) {
		return nil, BalanceDelta{}, conflictErr(o.Status, EventReturn)
	}
	if !returnType.Valid() {
		return nil, BalanceDelta{}, apperr.New(apperr.Validation, "invalid return type")
	}
	if !refundMethod.Valid() {
		return nil, BalanceDelta{}, apperr.New(apperr.Validation, "invalid refund method")
	}
	if refundAmount <= 0 {
		return nil, BalanceDelta{}, apperr.New(apperr.InvalidAmount, "refund amount must be positive")
	}
	if refundAmount > o.InvoiceAmount {
		return nil, BalanceDelta{}, apperr.New(apperr.InvalidAmount, "refund amount exceeds invoice amount")
	}

	if refundAmount == o.InvoiceAmount {
		o.Status = StatusReturned
	} else {
		o.Status = StatusPartialReturned
	}
	o.PaymentStatus = PaymentRefunded
	o.UpdatedAt = now

	delta := BalanceDelta{SalesDelta: -refundAmount}
	wasCredit := o.PaymentMethod != nil && *o.PaymentMethod == PaymentCustomerCredit
	if (wasCredit && refundMethod != PaymentCustomerCredit) || refundMethod == PaymentCustomerCredit {
		delta.DuesDelta = -refundAmount
	}

	ret := &Return{
		OrderID:      o.ID,
		Type:         returnType,
		RefundAmount: refundAmount,
		RefundMethod: refundMethod,
		Reason:       reason,
		CreatedAt:    now,
	}
	return ret, delta, nil
}

// Edit 整体替换发票金额与行项目。仅限尚未送达的订单。
func (o *Order) Edit(invoiceAmount float64, items []OrderItem, notes string, now time.Time) error {
	if !CanTransition(o.Status, EventEdit) {
		return conflictErr(o.Status, EventEdit)
	}
	if invoiceAmount <= 0 {
		return apperr.New(apperr.InvalidAmount, "invoice amount must be positive")
	}
	if len(items) == 0 {
		return apperr.New(apperr.Validation, "order must have at least one item")
	}
	o.InvoiceAmount = invoiceAmount
	o.Items = items
	o.Notes = notes
	o.UpdatedAt = now
	return nil
}

// Deletable 判断订单能否被硬删除：仅已取消的订单。
func (o *Order) Deletable() bool {
	return o.Status == StatusCancelled
}
