// internal/service/customer/application/dto.go
package application

import (
	"time"

	"dispatch/internal/service/customer/domain"
)

type CreateCustomerRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=100"`
	Phone   string `json:"phone" binding:"required,min=6,max=20"`
	Address string `json:"address" binding:"max=500"`
}

type UpdateCustomerRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=100"`
	Phone   string `json:"phone" binding:"required,min=6,max=20"`
	Address string `json:"address" binding:"max=500"`
}

type ClearDuesRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Method string  `json:"method" binding:"required,oneof=CASH CARD UPI"`
	Note   string  `json:"note" binding:"max=500"`
}

// CustomerView 是顾客档案的 REST 响应形状。
type CustomerView struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address,omitempty"`
	StoreID     uint      `json:"storeId"`
	TotalOrders int       `json:"totalOrders"`
	TotalSales  float64   `json:"totalSales"`
	TotalDues   float64   `json:"totalDues"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ClearanceView struct {
	ID         uint      `json:"id"`
	CustomerID uint      `json:"customerId"`
	Amount     float64   `json:"amount"`
	Method     string    `json:"method"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toCustomerView(c *domain.Customer) *CustomerView {
	return &CustomerView{
		ID:          c.ID,
		Name:        c.Name,
		Phone:       c.Phone,
		Address:     c.Address,
		StoreID:     c.StoreID,
		TotalOrders: c.TotalOrders,
		TotalSales:  c.TotalSales,
		TotalDues:   c.TotalDues,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toClearanceView(cl *domain.DueClearance) *ClearanceView {
	return &ClearanceView{
		ID:         cl.ID,
		CustomerID: cl.CustomerID,
		Amount:     cl.Amount,
		Method:     cl.Method,
		Note:       cl.Note,
		CreatedAt:  cl.CreatedAt,
	}
}
