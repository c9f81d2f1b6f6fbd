// internal/service/store/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"dispatch/internal/pkg/apperr"
	"dispatch/internal/service/store/domain"
)

// StoreModel 对应 stores 表。
type StoreModel struct {
	ID        uint   `gorm:"primarykey"`
	Name      string `gorm:"size:100;not null"`
	Address   string `gorm:"size:500"`
	Phone     string `gorm:"size:20"`
	Active    bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (StoreModel) TableName() string { return "stores" }

func toDomainStore(m *StoreModel) *domain.Store {
	return &domain.Store{
		ID:        m.ID,
		Name:      m.Name,
		Address:   m.Address,
		Phone:     m.Phone,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// GormStoreRepository 是 StoreRepository 的 GORM 实现
type GormStoreRepository struct {
	db *gorm.DB
}

func NewGormStoreRepository(db *gorm.DB) *GormStoreRepository {
	return &GormStoreRepository{db: db}
}

func (r *GormStoreRepository) Create(ctx context.Context, store *domain.Store) error {
	model := &StoreModel{
		Name:      store.Name,
		Address:   store.Address,
		Phone:     store.Phone,
		Active:    store.Active,
		CreatedAt: store.CreatedAt,
		UpdatedAt: store.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to create store", err)
	}
	store.ID = model.ID
	return nil
}

func (r *GormStoreRepository) FindByID(ctx context.Context, id uint) (*domain.Store, error) {
	var model StoreModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrStoreNotFound
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to load store", err)
	}
	return toDomainStore(&model), nil
}

func (r *GormStoreRepository) Update(ctx context.Context, store *domain.Store) error {
	res := r.db.WithContext(ctx).Model(&StoreModel{}).
		Where("id = ?", store.ID).
		Updates(map[string]interface{}{
			"name":       store.Name,
			"address":    store.Address,
			"phone":      store.Phone,
			"active":     store.Active,
			"updated_at": store.UpdatedAt,
		})
	if res.Error != nil {
		return apperr.Wrap(apperr.Internal, "failed to update store", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrStoreNotFound
	}
	return nil
}

func (r *GormStoreRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&StoreModel{}, id)
	if res.Error != nil {
		return apperr.Wrap(apperr.Internal, "failed to delete store", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrStoreNotFound
	}
	return nil
}

func (r *GormStoreRepository) List(ctx context.Context, includeInactive bool) ([]*domain.Store, error) {
	q := r.db.WithContext(ctx).Order("name ASC")
	if !includeInactive {
		q = q.Where("active = ?", true)
	}
	var models []StoreModel
	if err := q.Find(&models).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list stores", err)
	}
	stores := make([]*domain.Store, 0, len(models))
	for i := range models {
		stores = append(stores, toDomainStore(&models[i]))
	}
	return stores, nil
}

// GormOrderCounter 统计门店的历史订单数，用于删除/停用决策。
type GormOrderCounter struct {
	db *gorm.DB
}

func NewGormOrderCounter(db *gorm.DB) *GormOrderCounter {
	return &GormOrderCounter{db: db}
}

func (r *GormOrderCounter) CountByStore(ctx context.Context, storeID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("orders").Where("store_id = ?", storeID).Count(&count).Error
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "failed to count store orders", err)
	}
	return count, nil
}
