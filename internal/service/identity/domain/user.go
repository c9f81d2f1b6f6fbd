// internal/service/identity/domain/user.go
package domain

import (
	"time"

	"dispatch/internal/pkg/apperr"
)

// Role 是一个封闭的角色集合。所有权限判断都基于该枚举，
// 不在任何地方做字符串集合匹配。
type Role string

const (
	RoleAdmin        Role = "ADMIN"         // 平台管理员，不受门店限制
	RoleStoreManager Role = "STORE_MANAGER" // 门店经理，绑定唯一门店
	RoleDeliveryBoy  Role = "DELIVERY_BOY"  // 配送员，绑定唯一门店，且只能操作分配给自己的订单
	RoleCustomer     Role = "CUSTOMER"      // 顾客，只能查看自己的订单
)

// Valid 判断角色是否属于封闭集合。
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStoreManager, RoleDeliveryBoy, RoleCustomer:
		return true
	}
	return false
}

// IsStaff 判断角色是否为门店工作人员（经理或配送员）。
func (r Role) IsStaff() bool {
	return r == RoleStoreManager || r == RoleDeliveryBoy
}

// User 是认证体系中的账号实体。
// 非 ADMIN 的工作人员必须绑定一个门店；CUSTOMER 账号关联一个顾客档案。
type User struct {
	ID           uint
	Name         string
	Phone        string // 登录标识，全局唯一
	PasswordHash string
	Role         Role
	StoreID      *uint // ADMIN 为 nil
	CustomerID   *uint // 仅 CUSTOMER 角色使用
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity 是请求上下文中的行为主体，由 token 校验后构建，
// 每个请求只解析一次，之后所有守卫判断都基于它。
type Identity struct {
	UserID     uint
	Role       Role
	StoreID    *uint
	CustomerID *uint
}

var (
	ErrUserNotFound       = apperr.New(apperr.NotFound, "user not found")
	ErrPhoneTaken         = apperr.New(apperr.Conflict, "phone already registered")
	ErrAccountExists      = apperr.New(apperr.Conflict, "customer already has an account")
	ErrInvalidCredentials = apperr.New(apperr.Unauthorized, "invalid phone or password")
	ErrUserInactive       = apperr.New(apperr.Unauthorized, "account is deactivated")
	ErrTokenInvalid       = apperr.New(apperr.Unauthorized, "invalid or expired token")
)
