// internal/service/identity/application/dto.go
package application

import "dispatch/internal/service/identity/domain"

// RegisterStaffRequest 由管理员或门店经理创建工作人员账号。
type RegisterStaffRequest struct {
	Name     string      `json:"name" binding:"required,min=2,max=64"`
	Phone    string      `json:"phone" binding:"required,min=6,max=20"`
	Password string      `json:"password" binding:"required,min=6,max=72"`
	Role     domain.Role `json:"role" binding:"required"`
	StoreID  *uint       `json:"storeId"`
}

// RegisterCustomerAccountRequest 为已有顾客档案创建登录账号。
type RegisterCustomerAccountRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=64"`
	Phone    string `json:"phone" binding:"required,min=6,max=20"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type LoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// UserView 是对外暴露的账号表示，不含密码散列。
type UserView struct {
	ID         uint        `json:"id"`
	Name       string      `json:"name"`
	Phone      string      `json:"phone"`
	Role       domain.Role `json:"role"`
	StoreID    *uint       `json:"storeId,omitempty"`
	CustomerID *uint       `json:"customerId,omitempty"`
	Active     bool        `json:"active"`
}

func toUserView(u *domain.User) UserView {
	return UserView{
		ID:         u.ID,
		Name:       u.Name,
		Phone:      u.Phone,
		Role:       u.Role,
		StoreID:    u.StoreID,
		CustomerID: u.CustomerID,
		Active:     u.Active,
	}
}
