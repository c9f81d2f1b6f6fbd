// internal/service/order/infrastructure/models.go
package infrastructure

import "time"

// OrderModel 是 Order 聚合根在数据库中的表示。
type OrderModel struct {
	ID                uint    `gorm:"primaryKey"`
	OrderNumber       string  `gorm:"size:32;uniqueIndex;not null"`
	CustomerID        uint    `gorm:"not null;index"`
	StoreID           uint    `gorm:"not null;index"`
	Status            string  `gorm:"size:20;not null;index"`
	InvoiceAmount     float64 `gorm:"type:decimal(12,2);not null"`
	PaymentMethod     *string `gorm:"size:20"`
	PaymentStatus     string  `gorm:"size:10;not null;default:'PENDING'"`
	DeliveryPartnerID *uint   `gorm:"index"`
	Notes             string  `gorm:"type:text"`
	AssignedAt        *time.Time
	OutForDeliveryAt  *time.Time
	DeliveredAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Items []OrderItemModel `gorm:"foreignKey:OrderID"`
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 是订单行项目。随订单编辑被整体删除重建。
type OrderItemModel struct {
	ID          uint   `gorm:"primaryKey"`
	OrderID     uint   `gorm:"not null;index"`
	Description string `gorm:"size:255;not null"`
	Quantity    int    `gorm:"not null"`
}

func (OrderItemModel) TableName() string {
	return "order_items"
}

// DeliveryModel 是履约跟踪记录，每次分配事件一条，后续状态更新同一条。
type DeliveryModel struct {
	ID                  uint      `gorm:"primaryKey"`
	OrderID             uint      `gorm:"not null;uniqueIndex"`
	DeliveryPartnerID   uint      `gorm:"not null;index"`
	AssignedAt          time.Time `gorm:"not null"`
	OutForDeliveryAt    *time.Time
	DeliveredAt         *time.Time
	DeliveryTimeMinutes *int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (DeliveryModel) TableName() string {
	return "deliveries"
}

// ReturnModel 是送达后退货记录。
type ReturnModel struct {
	ID           uint    `gorm:"primaryKey"`
	OrderID      uint    `gorm:"not null;index"`
	Type         string  `gorm:"size:10;not null"`
	RefundAmount float64 `gorm:"type:decimal(12,2);not null"`
	RefundMethod string  `gorm:"size:20;not null"`
	Reason       string  `gorm:"size:500"`
	CreatedAt    time.Time
}

func (ReturnModel) TableName() string {
	return "returns"
}

// customerBalanceModel 是顾客累计数据在订单域的写投影。
// 表由 customer 服务拥有，这里只触达聚合列。
type customerBalanceModel struct {
	ID          uint
	StoreID     uint
	TotalOrders int
	TotalSales  float64
	TotalDues   float64
}

func (customerBalanceModel) TableName() string {
	return "customers"
}

// staffModel 是配送员资格查询的只读投影，表由 identity 服务拥有。
type staffModel struct {
	ID      uint
	Role    string
	StoreID *uint
	Active  bool
}

func (staffModel) TableName() string {
	return "users"
}

// storeModel 是门店存在性检查的只读投影，表由 store 服务拥有。
type storeModel struct {
	ID     uint
	Active bool
}

func (storeModel) TableName() string {
	return "stores"
}
