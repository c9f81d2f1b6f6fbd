// internal/service/identity/infrastructure/models.go
package infrastructure

import "time"

// UserModel 是 User 领域对象在数据库中的表示。
type UserModel struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"size:64;not null"`
	Phone        string `gorm:"size:20;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:100;not null"`
	Role         string `gorm:"size:20;not null;index"`
	StoreID      *uint  `gorm:"index"`
	CustomerID   *uint  `gorm:"uniqueIndex"` // 一个顾客档案至多一个登录账号
	Active       bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (UserModel) TableName() string {
	return "users"
}

// customerRecord 是 customers 表的只读投影，这里只关心档案的门店归属。
type customerRecord struct {
	ID      uint
	StoreID uint
}

func (customerRecord) TableName() string {
	return "customers"
}
