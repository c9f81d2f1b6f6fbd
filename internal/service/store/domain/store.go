// internal/service/store/domain/store.go
package domain

import (
	"context"
	"time"

	"dispatch/internal/pkg/apperr"
)

// Store 是门店实体。经理与配送员通过 identity.storeID 绑定到门店，
// 门店自身只承载档案与启用状态。
type Store struct {
	ID        uint
	Name      string
	Address   string
	Phone     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

var ErrStoreNotFound = apperr.New(apperr.NotFound, "store not found")

// NewStore 是门店的工厂函数。
func NewStore(name, address, phone string) (*Store, error) {
	if name == "" {
		return nil, apperr.New(apperr.Validation, "store name is required")
	}
	now := time.Now()
	return &Store{
		Name:      name,
		Address:   address,
		Phone:     phone,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateProfile 更新门店档案。
func (s *Store) UpdateProfile(name, address, phone string, now time.Time) error {
	if name == "" {
		return apperr.New(apperr.Validation, "store name is required")
	}
	s.Name = name
	s.Address = address
	s.Phone = phone
	s.UpdatedAt = now
	return nil
}

// Deactivate 停用门店。带历史订单的门店只停用不删除。
func (s *Store) Deactivate(now time.Time) {
	s.Active = false
	s.UpdatedAt = now
}

// StoreRepository 定义门店的持久化接口。
type StoreRepository interface {
	Create(ctx context.Context, store *Store) error
	FindByID(ctx context.Context, id uint) (*Store, error)
	Update(ctx context.Context, store *Store) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, includeInactive bool) ([]*Store, error)
}

// OrderCounter 查询门店的历史订单数，用于决定删除还是停用。
type OrderCounter interface {
	CountByStore(ctx context.Context, storeID uint) (int64, error)
}
