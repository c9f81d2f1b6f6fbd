// internal/service/order/infrastructure/mapper.go
package infrastructure

import "dispatch/internal/service/order/domain"

// ToDomainOrder 将数据库模型转换为领域模型
func ToDomainOrder(model *OrderModel) *domain.Order {
	if model == nil {
		return nil
	}
	items := make([]domain.OrderItem, 0, len(model.Items))
	for _, it := range model.Items {
		items = append(items, domain.OrderItem{
			ID:          it.ID,
			OrderID:     it.OrderID,
			Description: it.Description,
			Quantity:    it.Quantity,
		})
	}
	var method *domain.PaymentMethod
	if model.PaymentMethod != nil {
		m := domain.PaymentMethod(*model.PaymentMethod)
		method = &m
	}
	return &domain.Order{
		ID:                model.ID,
		OrderNumber:       model.OrderNumber,
		CustomerID:        model.CustomerID,
		StoreID:           model.StoreID,
		Status:            domain.Status(model.Status),
		InvoiceAmount:     model.InvoiceAmount,
		PaymentMethod:     method,
		PaymentStatus:     domain.PaymentStatus(model.PaymentStatus),
		DeliveryPartnerID: model.DeliveryPartnerID,
		Notes:             model.Notes,
		Items:             items,
		AssignedAt:        model.AssignedAt,
		OutForDeliveryAt:  model.OutForDeliveryAt,
		DeliveredAt:       model.DeliveredAt,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}

// FromDomainOrder 将领域模型转换为数据库模型
func FromDomainOrder(order *domain.Order) *OrderModel {
	if order == nil {
		return nil
	}
	items := make([]OrderItemModel, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, OrderItemModel{
			ID:          it.ID,
			OrderID:     it.OrderID,
			Description: it.Description,
			Quantity:    it.Quantity,
		})
	}
	var method *string
	if order.PaymentMethod != nil {
		m := string(*order.PaymentMethod)
		method = &m
	}
	return &OrderModel{
		ID:                order.ID,
		OrderNumber:       order.OrderNumber,
		CustomerID:        order.CustomerID,
		StoreID:           order.StoreID,
		Status:            string(order.Status),
		InvoiceAmount:     order.InvoiceAmount,
		PaymentMethod:     method,
		PaymentStatus:     string(order.PaymentStatus),
		DeliveryPartnerID: order.DeliveryPartnerID,
		Notes:             order.Notes,
		AssignedAt:        order.AssignedAt,
		OutForDeliveryAt:  order.OutForDeliveryAt,
		DeliveredAt:       order.DeliveredAt,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
		Items:             items,
	}
}

// ToDomainDelivery 将数据库模型转换为领域模型
func ToDomainDelivery(model *DeliveryModel) *domain.Delivery {
	if model == nil {
		return nil
	}
	return &domain.Delivery{
		ID:                  model.ID,
		OrderID:             model.OrderID,
		DeliveryPartnerID:   model.DeliveryPartnerID,
		AssignedAt:          model.AssignedAt,
		OutForDeliveryAt:    model.OutForDeliveryAt,
		DeliveredAt:         model.DeliveredAt,
		DeliveryTimeMinutes: model.DeliveryTimeMinutes,
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	}
}

// FromDomainDelivery 将领域模型转换为数据库模型
func FromDomainDelivery(d *domain.Delivery) *DeliveryModel {
	if d == nil {
		return nil
	}
	return &DeliveryModel{
		ID:                  d.ID,
		OrderID:             d.OrderID,
		DeliveryPartnerID:   d.DeliveryPartnerID,
		AssignedAt:          d.AssignedAt,
		OutForDeliveryAt:    d.OutForDeliveryAt,
		DeliveredAt:         d.DeliveredAt,
		DeliveryTimeMinutes: d.DeliveryTimeMinutes,
	}
}

// FromDomainReturn 将领域模型转换为数据库模型
func FromDomainReturn(ret *domain.Return) *ReturnModel {
	if ret == nil {
		return nil
	}
	return &ReturnModel{
		OrderID:      ret.OrderID,
		Type:         string(ret.Type),
		RefundAmount: ret.RefundAmount,
		RefundMethod: string(ret.RefundMethod),
		Reason:       ret.Reason,
		CreatedAt:    ret.CreatedAt,
	}
}
