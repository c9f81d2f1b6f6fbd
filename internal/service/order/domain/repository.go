// internal/service/order/domain/repository.go
package domain

import (
	"context"

	"dispatch/internal/pkg/apperr"
	identity "dispatch/internal/service/identity/domain"
)

var (
	ErrOrderNotFound    = apperr.New(apperr.NotFound, "order not found")
	ErrCustomerNotFound = apperr.New(apperr.NotFound, "customer not found")
	ErrStoreNotFound    = apperr.New(apperr.NotFound, "store not found")
	ErrPartnerNotFound  = apperr.New(apperr.NotFound, "delivery partner not found or not eligible")
)

// ListFilter 限定订单列表查询的范围。
type ListFilter struct {
	StoreID           *uint
	Status            *Status
	DeliveryPartnerID *uint
	CustomerID        *uint
	Limit             int
	Offset            int
}

// OrderRepository 定义订单聚合的持久化接口，由基础设施层实现。
// 事务内调用时通过 ctx 携带事务句柄。
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	// FindByID 加载订单及其行项目。forUpdate 为 true 时加行锁。
	FindByID(ctx context.Context, id uint, forUpdate bool) (*Order, error)
	Update(ctx context.Context, order *Order) error
	// ReplaceItems 整体删除并重建行项目。
	ReplaceItems(ctx context.Context, orderID uint, items []OrderItem) error
	// Delete 先删行项目再删订单，保证引用完整性。
	Delete(ctx context.Context, orderID uint) error
	List(ctx context.Context, filter ListFilter) ([]*Order, error)
}

// DeliveryRepository 定义履约记录的持久化接口。
type DeliveryRepository interface {
	Create(ctx context.Context, delivery *Delivery) error
	FindByOrderID(ctx context.Context, orderID uint) (*Delivery, error)
	Update(ctx context.Context, delivery *Delivery) error
}

// ReturnRepository 定义退货记录的持久化接口。
type ReturnRepository interface {
	Create(ctx context.Context, ret *Return) error
}

// CustomerBalances 操作顾客的累计统计。实现必须保证：
//   - 更新走行锁，同一顾客的并发变更被数据库串行化；
//   - 欠款减少在归零处截断，永不为负。
type CustomerBalances interface {
	// FindStoreID 返回顾客所属门店，顾客不存在时返回 ErrCustomerNotFound。
	FindStoreID(ctx context.Context, customerID uint) (uint, error)
	IncrementOrders(ctx context.Context, customerID uint) error
	ApplyDelta(ctx context.Context, customerID uint, delta BalanceDelta) error
}

// DeliveryPartner 是配送员在订单域的只读投影。
type DeliveryPartner struct {
	ID      uint
	Role    identity.Role
	StoreID *uint
	Active  bool
}

// StaffDirectory 查询配送员资格，用于分配守卫。
type StaffDirectory interface {
	FindDeliveryPartner(ctx context.Context, userID uint) (*DeliveryPartner, error)
}

// StoreDirectory 校验门店存在性。
type StoreDirectory interface {
	Exists(ctx context.Context, storeID uint) (bool, error)
}

// UnitOfWork 把一个函数包进单个数据库事务。fn 返回错误时整体回滚。
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
