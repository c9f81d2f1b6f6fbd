// internal/service/identity/domain/policy.go
package domain

import "dispatch/internal/pkg/apperr"

// 本文件集中了与订单无关的通用授权策略。
// 订单状态流转相关的守卫位于 order 服务的领域层，
// 但同样以这里的 Identity 为输入，保证"每请求解析一次"的约定。

// ErrAccessDenied 统一的授权失败错误。对外不泄露范围细节。
var ErrAccessDenied = apperr.New(apperr.Forbidden, "access denied")

// CanActOnStore 判断行为主体能否操作指定门店的资源。
// 范围不匹配时必须显式拒绝，绝不隐式收窄查询范围。
func CanActOnStore(actor Identity, storeID uint) bool {
	if actor.Role == RoleAdmin {
		return true
	}
	return actor.StoreID != nil && *actor.StoreID == storeID
}

// CanManageStore 判断行为主体是否以经理/管理员身份管理指定门店。
// 配送员即使属于该门店也不具备管理权限。
func CanManageStore(actor Identity, storeID uint) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleStoreManager:
		return actor.StoreID != nil && *actor.StoreID == storeID
	}
	return false
}

// CanViewCustomer 判断行为主体能否查看某顾客档案。
func CanViewCustomer(actor Identity, customerID, storeID uint) bool {
	if actor.Role == RoleCustomer {
		return actor.CustomerID != nil && *actor.CustomerID == customerID
	}
	return CanActOnStore(actor, storeID)
}
