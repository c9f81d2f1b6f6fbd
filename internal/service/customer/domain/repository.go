// internal/service/customer/domain/repository.go
package domain

import "context"

// ListFilter 限定顾客列表查询。Search 对姓名与电话做前缀匹配。
type ListFilter struct {
	StoreID uint
	Search  string
	HasDues bool
	Limit   int
	Offset  int
}

// CustomerRepository 定义顾客聚合的持久化接口。
// 清账等写路径要求 forUpdate 行锁加载，与订单侧的统计更新互斥。
type CustomerRepository interface {
	Create(ctx context.Context, customer *Customer) error
	FindByID(ctx context.Context, id uint, forUpdate bool) (*Customer, error)
	Update(ctx context.Context, customer *Customer) error
	List(ctx context.Context, filter ListFilter) ([]*Customer, error)
}

// ClearanceRepository 定义清账凭证的持久化接口。
type ClearanceRepository interface {
	Create(ctx context.Context, clearance *DueClearance) error
	ListByCustomer(ctx context.Context, customerID uint) ([]*DueClearance, error)
}

// UnitOfWork 把一个函数包进单个数据库事务。
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
