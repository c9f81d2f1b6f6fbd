// internal/service/customer/infrastructure/mapper.go
package infrastructure

import "dispatch/internal/service/customer/domain"

func ToDomainCustomer(m *CustomerModel) *domain.Customer {
	return &domain.Customer{
		ID:          m.ID,
		Name:        m.Name,
		Phone:       m.Phone,
		Address:     m.Address,
		StoreID:     m.StoreID,
		TotalOrders: m.TotalOrders,
		TotalSales:  m.TotalSales,
		TotalDues:   m.TotalDues,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func FromDomainCustomer(c *domain.Customer) *CustomerModel {
	return &CustomerModel{
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

func ToDomainClearance(m *DueClearanceModel) *domain.DueClearance {
	return &domain.DueClearance{
		ID:         m.ID,
		CustomerID: m.CustomerID,
		Amount:     m.Amount,
		Method:     m.Method,
		Note:       m.Note,
		CreatedAt:  m.CreatedAt,
	}
}

func FromDomainClearance(cl *domain.DueClearance) *DueClearanceModel {
	return &DueClearanceModel{
		ID:         cl.ID,
		CustomerID: cl.CustomerID,
		Amount:     cl.Amount,
		Method:     cl.Method,
		Note:       cl.Note,
		CreatedAt:  cl.CreatedAt,
	}
}
