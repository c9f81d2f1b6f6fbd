// internal/service/customer/domain/customer.go
package domain

import (
	"time"

	"dispatch/internal/pkg/apperr"
)

// Customer 是顾客聚合，归属于唯一门店。
// 累计统计（totalOrders/totalSales/totalDues）由订单流转在同一事务内维护，
// 这里只承载档案信息与清账路径。
type Customer struct {
	ID          uint
	Name        string
	Phone       string // 同一门店内唯一
	Address     string
	StoreID     uint
	TotalOrders int
	TotalSales  float64
	TotalDues   float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DueClearance 记录一次顾客还款。金额校验在 ReduceDues 中完成。
type DueClearance struct {
	ID         uint
	CustomerID uint
	Amount     float64
	Method     string
	Note       string
	CreatedAt  time.Time
}

var (
	ErrCustomerNotFound = apperr.New(apperr.NotFound, "customer not found")
	ErrPhoneTaken       = apperr.New(apperr.Conflict, "phone already registered in this store")
)

// NewCustomer 是顾客档案的工厂函数。
func NewCustomer(name, phone, address string, storeID uint) (*Customer, error) {
	if name == "" || phone == "" {
		return nil, apperr.New(apperr.Validation, "name and phone are required")
	}
	now := time.Now()
	return &Customer{
		Name:      name,
		Phone:     phone,
		Address:   address,
		StoreID:   storeID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateProfile 更新档案字段，不触碰累计统计。
func (c *Customer) UpdateProfile(name, phone, address string, now time.Time) error {
	if name == "" || phone == "" {
		return apperr.New(apperr.Validation, "name and phone are required")
	}
	c.Name = name
	c.Phone = phone
	c.Address = address
	c.UpdatedAt = now
	return nil
}

// ReduceDues 按还款金额扣减欠款，在归零处截断。
// 返回需要记录的清账凭证；金额非正或没有欠款时拒绝。
func (c *Customer) ReduceDues(amount float64, method, note string, now time.Time) (*DueClearance, error) {
	if amount <= 0 {
		return nil, apperr.New(apperr.InvalidAmount, "clearance amount must be positive")
	}
	if c.TotalDues <= 0 {
		return nil, apperr.New(apperr.Conflict, "customer has no outstanding dues")
	}
	c.TotalDues -= amount
	if c.TotalDues < 0 {
		c.TotalDues = 0
	}
	c.UpdatedAt = now
	return &DueClearance{
		CustomerID: c.ID,
		Amount:     amount,
		Method:     method,
		Note:       note,
		CreatedAt:  now,
	}, nil
}
