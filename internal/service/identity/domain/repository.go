// internal/service/identity/domain/repository.go
package domain

import (
	"context"
	"time"
)

// UserRepository 定义账号的持久化接口，由基础设施层实现。
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uint) (*User, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)
	// FindByCustomerID 查找绑定到某顾客档案的登录账号。
	FindByCustomerID(ctx context.Context, customerID uint) (*User, error)
	// ListStaffByStore 列出某门店下指定角色的工作人员。role 为空列出全部员工。
	ListStaffByStore(ctx context.Context, storeID uint, role Role) ([]*User, error)
	UpdateActive(ctx context.Context, id uint, active bool) error
}

// CustomerDirectory 提供顾客档案的只读信息，
// 用于在创建顾客登录账号时解析档案归属的门店。
type CustomerDirectory interface {
	FindCustomerStore(ctx context.Context, customerID uint) (uint, error)
}

// TokenStore 定义 bearer token 的签发 / 校验 / 吊销接口。
// token 本体是服务端保存的不透明字符串；吊销通过删除会话并写入黑名单完成。
type TokenStore interface {
	Issue(ctx context.Context, identity Identity, ttl time.Duration) (string, error)
	Verify(ctx context.Context, token string) (*Identity, error)
	Revoke(ctx context.Context, token string) error
}
