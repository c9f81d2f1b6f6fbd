// internal/service/identity/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"dispatch/internal/pkg/apperr"
	"dispatch/internal/service/identity/domain"
)

// GormUserRepository 是 UserRepository 的 GORM 实现
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	model := FromDomainUser(user)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrPhoneTaken
		}
		return apperr.Wrap(apperr.Internal, "failed to create user", err)
	}
	user.ID = model.ID
	return nil
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to load user", err)
	}
	return ToDomainUser(&model), nil
}

func (r *GormUserRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to load user", err)
	}
	return ToDomainUser(&model), nil
}

func (r *GormUserRepository) FindByCustomerID(ctx context.Context, customerID uint) (*domain.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to load user", err)
	}
	return ToDomainUser(&model), nil
}

func (r *GormUserRepository) ListStaffByStore(ctx context.Context, storeID uint, role domain.Role) ([]*domain.User, error) {
	q := r.db.WithContext(ctx).Where("store_id = ?", storeID)
	if role != "" {
		q = q.Where("role = ?", string(role))
	} else {
		q = q.Where("role IN ?", []string{string(domain.RoleStoreManager), string(domain.RoleDeliveryBoy)})
	}

	var models []UserModel
	if err := q.Order("id").Find(&models).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list staff", err)
	}
	users := make([]*domain.User, 0, len(models))
	for i := range models {
		users = append(users, ToDomainUser(&models[i]))
	}
	return users, nil
}

func (r *GormUserRepository) UpdateActive(ctx context.Context, id uint, active bool) error {
	res := r.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return apperr.Wrap(apperr.Internal, "failed to update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// GormCustomerDirectory 是 CustomerDirectory 的 GORM 实现，只读查询 customers 表。
type GormCustomerDirectory struct {
	db *gorm.DB
}

func NewGormCustomerDirectory(db *gorm.DB) *GormCustomerDirectory {
	return &GormCustomerDirectory{db: db}
}

func (r *GormCustomerDirectory) FindCustomerStore(ctx context.Context, customerID uint) (uint, error) {
	var model customerRecord
	err := r.db.WithContext(ctx).Select("id", "store_id").First(&model, customerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.New(apperr.NotFound, "customer not found")
		}
		return 0, apperr.Wrap(apperr.Internal, "failed to load customer", err)
	}
	return model.StoreID, nil
}
