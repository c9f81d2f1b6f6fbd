// internal/service/customer/infrastructure/models.go
package infrastructure

import "time"

// CustomerModel 对应 customers 表。电话在门店内唯一由复合唯一索引保证。
// totalSales/totalDues 同时被订单侧在事务内原子更新，两侧共享行锁语义。
type CustomerModel struct {
	ID          uint    `gorm:"primarykey"`
	Name        string  `gorm:"size:100;not null"`
	Phone       string  `gorm:"size:20;not null;uniqueIndex:idx_store_phone"`
	Address     string  `gorm:"size:500"`
	StoreID     uint    `gorm:"not null;index;uniqueIndex:idx_store_phone"`
	TotalOrders int     `gorm:"not null;default:0"`
	TotalSales  float64 `gorm:"type:decimal(14,2);not null;default:0"`
	TotalDues   float64 `gorm:"type:decimal(14,2);not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (CustomerModel) TableName() string { return "customers" }

// DueClearanceModel 对应 due_clearances 表。
type DueClearanceModel struct {
	ID         uint    `gorm:"primarykey"`
	CustomerID uint    `gorm:"not null;index"`
	Amount     float64 `gorm:"type:decimal(12,2);not null"`
	Method     string  `gorm:"size:20;not null"`
	Note       string  `gorm:"size:500"`
	CreatedAt  time.Time
}

func (DueClearanceModel) TableName() string { return "due_clearances" }
