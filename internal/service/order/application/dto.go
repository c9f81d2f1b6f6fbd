// internal/service/order/application/dto.go
package application

import "dispatch/internal/service/order/domain"

type OrderItemInput struct {
	Description string `json:"description" binding:"required,min=1,max=255"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
}

type CreateOrderRequest struct {
	CustomerID    uint             `json:"customerId" binding:"required"`
	InvoiceAmount float64          `json:"invoiceAmount" binding:"required,gt=0"`
	Items         []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	Notes         string           `json:"notes" binding:"max=1000"`
}

type AssignRequest struct {
	DeliveryPartnerID uint `json:"deliveryPartnerId" binding:"required"`
}

type DeliverRequest struct {
	PaymentMethod domain.PaymentMethod `json:"paymentMethod" binding:"required,oneof=CASH CARD UPI CUSTOMER_CREDIT"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type ReturnRequest struct {
	Type         domain.ReturnType    `json:"type" binding:"required,oneof=FULL PARTIAL"`
	RefundAmount float64              `json:"refundAmount" binding:"required,gt=0"`
	RefundMethod domain.PaymentMethod `json:"refundMethod" binding:"required,oneof=CASH CARD UPI CUSTOMER_CREDIT"`
	Reason       string               `json:"reason" binding:"max=500"`
}

type EditOrderRequest struct {
	InvoiceAmount float64          `json:"invoiceAmount" binding:"required,gt=0"`
	Items         []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	Notes         string           `json:"notes" binding:"max=1000"`
}

func toDomainItems(inputs []OrderItemInput) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, domain.OrderItem{Description: in.Description, Quantity: in.Quantity})
	}
	return items
}
