// internal/service/order/domain/policy.go
package domain

import (
	"dispatch/internal/pkg/apperr"
	identity "dispatch/internal/service/identity/domain"
)

// ErrAccessDenied 统一的授权失败错误。对外不泄露范围细节。
var ErrAccessDenied = apperr.New(apperr.Forbidden, "access denied")

// Authorize 集中判定行为主体能否对订单触发给定事件。
// 每个请求先解析一次 Identity，再调用这里，杜绝散落在各处的角色字符串判断。
func Authorize(actor identity.Identity, o *Order, event Event) error {
	switch event {
	case EventAssign, EventCancel, EventReturn, EventEdit:
		// 门店经理或管理员
		if identity.CanManageStore(actor, o.StoreID) {
			return nil
		}
	case EventStartDelivery, EventDeliver:
		// 被分配的配送员，或该门店的经理/管理员
		if identity.CanManageStore(actor, o.StoreID) {
			return nil
		}
		if actor.Role == identity.RoleDeliveryBoy &&
			o.DeliveryPartnerID != nil && *o.DeliveryPartnerID == actor.UserID &&
			identity.CanActOnStore(actor, o.StoreID) {
			return nil
		}
	}
	return ErrAccessDenied
}

// AuthorizeCreate 判定能否在指定门店创建订单。
func AuthorizeCreate(actor identity.Identity, storeID uint) error {
	if identity.CanManageStore(actor, storeID) {
		return nil
	}
	return ErrAccessDenied
}

// AuthorizeView 判定能否查看订单。配送员仅限分配给自己的订单，
// 顾客仅限自己的订单。范围不匹配时显式拒绝，不做隐式过滤。
func AuthorizeView(actor identity.Identity, o *Order) error {
	switch actor.Role {
	case identity.RoleAdmin:
		return nil
	case identity.RoleStoreManager:
		if identity.CanActOnStore(actor, o.StoreID) {
			return nil
		}
	case identity.RoleDeliveryBoy:
		if identity.CanActOnStore(actor, o.StoreID) &&
			o.DeliveryPartnerID != nil && *o.DeliveryPartnerID == actor.UserID {
			return nil
		}
	case identity.RoleCustomer:
		if actor.CustomerID != nil && *actor.CustomerID == o.CustomerID {
			return nil
		}
	}
	return ErrAccessDenied
}
