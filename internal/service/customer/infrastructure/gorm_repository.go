// internal/service/customer/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dispatch/internal/pkg/apperr"
	"dispatch/internal/service/customer/domain"
)

// pageLimit 把分页大小约束到 (0, 200]，缺省 50。超限取上限而不是重置。
func pageLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}

type txKey struct{}

func dbFrom(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}

// GormUnitOfWork 把单个函数包进一个数据库事务。
type GormUnitOfWork struct {
	db *gorm.DB
}

func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

func (u *GormUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// GormCustomerRepository 是 CustomerRepository 的 GORM 实现
type GormCustomerRepository struct {
	db *gorm.DB
}

func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

func (r *GormCustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	model := FromDomainCustomer(customer)
	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrPhoneTaken
		}
		return apperr.Wrap(apperr.Internal, "failed to create customer", err)
	}
	customer.ID = model.ID
	return nil
}

func (r *GormCustomerRepository) FindByID(ctx context.Context, id uint, forUpdate bool) (*domain.Customer, error) {
	q := dbFrom(ctx, r.db)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var model CustomerModel
	if err := q.First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to load customer", err)
	}
	return ToDomainCustomer(&model), nil
}

func (r *GormCustomerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	res := dbFrom(ctx, r.db).Model(&CustomerModel{}).
		Where("id = ?", customer.ID).
		Updates(map[string]interface{}{
			"name":       customer.Name,
			"phone":      customer.Phone,
			"address":    customer.Address,
			"total_dues": customer.TotalDues,
			"updated_at": customer.UpdatedAt,
		})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return domain.ErrPhoneTaken
		}
		return apperr.Wrap(apperr.Internal, "failed to update customer", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func (r *GormCustomerRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Customer, error) {
	q := dbFrom(ctx, r.db).Where("store_id = ?", filter.StoreID)
	if filter.Search != "" {
		pattern := filter.Search + "%"
		q = q.Where("name LIKE ? OR phone LIKE ?", pattern, pattern)
	}
	if filter.HasDues {
		q = q.Where("total_dues > 0")
	}
	limit := pageLimit(filter.Limit)

	var models []CustomerModel
	if err := q.Order("name ASC").Limit(limit).Offset(filter.Offset).Find(&models).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list customers", err)
	}
	customers := make([]*domain.Customer, 0, len(models))
	for i := range models {
		customers = append(customers, ToDomainCustomer(&models[i]))
	}
	return customers, nil
}

// GormClearanceRepository 是 ClearanceRepository 的 GORM 实现
type GormClearanceRepository struct {
	db *gorm.DB
}

func NewGormClearanceRepository(db *gorm.DB) *GormClearanceRepository {
	return &GormClearanceRepository{db: db}
}

func (r *GormClearanceRepository) Create(ctx context.Context, clearance *domain.DueClearance) error {
	model := FromDomainClearance(clearance)
	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to record due clearance", err)
	}
	clearance.ID = model.ID
	return nil
}

func (r *GormClearanceRepository) ListByCustomer(ctx context.Context, customerID uint) ([]*domain.DueClearance, error) {
	var models []DueClearanceModel
	err := dbFrom(ctx, r.db).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list due clearances", err)
	}
	clearances := make([]*domain.DueClearance, 0, len(models))
	for i := range models {
		clearances = append(clearances, ToDomainClearance(&models[i]))
	}
	return clearances, nil
}
