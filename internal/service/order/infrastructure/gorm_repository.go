// internal/service/order/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dispatch/internal/pkg/apperr"
	identity "dispatch/internal/service/identity/domain"
	"dispatch/internal/service/order/domain"
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

// txKey 在 ctx 中携带事务句柄，仓储方法统一通过 dbFrom 解析。
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

// GormOrderRepository 是 OrderRepository 的 GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	model := FromDomainOrder(order)
	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.New(apperr.Conflict, "order number already exists")
		}
		return apperr.Wrap(apperr.Internal, "failed to create order", err)
	}
	order.ID = model.ID
	for i := range model.Items {
		order.Items[i].ID = model.Items[i].ID
		order.Items[i].OrderID = model.ID
	}
	return nil
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id uint, forUpdate bool) (*domain.Order, error) {
	q := dbFrom(ctx, r.db).Preload("Items")
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var model OrderModel
	if err := q.First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to load order", err)
	}
	return ToDomainOrder(&model), nil
}

func (r *GormOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	model := FromDomainOrder(order)
	// 只更新订单本体；行项目由 ReplaceItems 单独处理
	err := dbFrom(ctx, r.db).Model(&OrderModel{}).Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":              model.Status,
			"invoice_amount":      model.InvoiceAmount,
			"payment_method":      model.PaymentMethod,
			"payment_status":      model.PaymentStatus,
			"delivery_partner_id": model.DeliveryPartnerID,
			"notes":               model.Notes,
			"assigned_at":         model.AssignedAt,
			"out_for_delivery_at": model.OutForDeliveryAt,
			"delivered_at":        model.DeliveredAt,
			"updated_at":          model.UpdatedAt,
		}).Error
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to update order", err)
	}
	return nil
}

func (r *GormOrderRepository) ReplaceItems(ctx context.Context, orderID uint, items []domain.OrderItem) error {
	db := dbFrom(ctx, r.db)
	if err := db.Where("order_id = ?", orderID).Delete(&OrderItemModel{}).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to delete order items", err)
	}
	models := make([]OrderItemModel, 0, len(items))
	for _, it := range items {
		models = append(models, OrderItemModel{OrderID: orderID, Description: it.Description, Quantity: it.Quantity})
	}
	if err := db.Create(&models).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to insert order items", err)
	}
	return nil
}

func (r *GormOrderRepository) Delete(ctx context.Context, orderID uint) error {
	db := dbFrom(ctx, r.db)
	// 引用完整性：先删行项目
	if err := db.Where("order_id = ?", orderID).Delete(&OrderItemModel{}).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to delete order items", err)
	}
	if err := db.Delete(&OrderModel{}, orderID).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to delete order", err)
	}
	return nil
}

func (r *GormOrderRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	q := dbFrom(ctx, r.db).Preload("Items")
	if filter.StoreID != nil {
		q = q.Where("store_id = ?", *filter.StoreID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", string(*filter.Status))
	}
	if filter.DeliveryPartnerID != nil {
		q = q.Where("delivery_partner_id = ?", *filter.DeliveryPartnerID)
	}
	if filter.CustomerID != nil {
		q = q.Where("customer_id = ?", *filter.CustomerID)
	}
	limit := pageLimit(filter.Limit)
	var models []OrderModel
	if err := q.Order("id DESC").Limit(limit).Offset(filter.Offset).Find(&models).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list orders", err)
	}
	orders := make([]*domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, ToDomainOrder(&models[i]))
	}
	return orders, nil
}

// GormDeliveryRepository 是 DeliveryRepository 的 GORM 实现
type GormDeliveryRepository struct {
	db *gorm.DB
}

func NewGormDeliveryRepository(db *gorm.DB) *GormDeliveryRepository {
	return &GormDeliveryRepository{db: db}
}

func (r *GormDeliveryRepository) Create(ctx context.Context, delivery *domain.Delivery) error {
	model := FromDomainDelivery(delivery)
	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to create delivery record", err)
	}
	delivery.ID = model.ID
	return nil
}

func (r *GormDeliveryRepository) FindByOrderID(ctx context.Context, orderID uint) (*domain.Delivery, error) {
	var model DeliveryModel
	err := dbFrom(ctx, r.db).Where("order_id = ?", orderID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "delivery record not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to load delivery record", err)
	}
	return ToDomainDelivery(&model), nil
}

func (r *GormDeliveryRepository) Update(ctx context.Context, delivery *domain.Delivery) error {
	err := dbFrom(ctx, r.db).Model(&DeliveryModel{}).Where("id = ?", delivery.ID).
		Updates(map[string]interface{}{
			"out_for_delivery_at":   delivery.OutForDeliveryAt,
			"delivered_at":          delivery.DeliveredAt,
			"delivery_time_minutes": delivery.DeliveryTimeMinutes,
		}).Error
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to update delivery record", err)
	}
	return nil
}

// GormReturnRepository 是 ReturnRepository 的 GORM 实现
type GormReturnRepository struct {
	db *gorm.DB
}

func NewGormReturnRepository(db *gorm.DB) *GormReturnRepository {
	return &GormReturnRepository{db: db}
}

func (r *GormReturnRepository) Create(ctx context.Context, ret *domain.Return) error {
	model := FromDomainReturn(ret)
	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to create return record", err)
	}
	ret.ID = model.ID
	return nil
}

// GormCustomerBalances 操作 customers 表的累计列。
// 所有更新都在调用方的事务内执行并带行锁。
type GormCustomerBalances struct {
	db *gorm.DB
}

func NewGormCustomerBalances(db *gorm.DB) *GormCustomerBalances {
	return &GormCustomerBalances{db: db}
}

func (r *GormCustomerBalances) FindStoreID(ctx context.Context, customerID uint) (uint, error) {
	var model customerBalanceModel
	err := dbFrom(ctx, r.db).Select("id", "store_id").First(&model, customerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domain.ErrCustomerNotFound
		}
		return 0, apperr.Wrap(apperr.Internal, "failed to load customer", err)
	}
	return model.StoreID, nil
}

func (r *GormCustomerBalances) IncrementOrders(ctx context.Context, customerID uint) error {
	res := dbFrom(ctx, r.db).Model(&customerBalanceModel{}).Where("id = ?", customerID).
		Update("total_orders", gorm.Expr("total_orders + 1"))
	if res.Error != nil {
		return apperr.Wrap(apperr.Internal, "failed to update customer totals", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func (r *GormCustomerBalances) ApplyDelta(ctx context.Context, customerID uint, delta domain.BalanceDelta) error {
	// GREATEST 在归零处截断欠款，保证 totalDues 永不为负
	res := dbFrom(ctx, r.db).Model(&customerBalanceModel{}).Where("id = ?", customerID).
		Updates(map[string]interface{}{
			"total_sales": gorm.Expr("total_sales + ?", delta.SalesDelta),
			"total_dues":  gorm.Expr("GREATEST(total_dues + ?, 0)", delta.DuesDelta),
		})
	if res.Error != nil {
		return apperr.Wrap(apperr.Internal, "failed to update customer totals", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

// GormStaffDirectory 是 StaffDirectory 的 GORM 实现，只读查询 users 表。
type GormStaffDirectory struct {
	db *gorm.DB
}

func NewGormStaffDirectory(db *gorm.DB) *GormStaffDirectory {
	return &GormStaffDirectory{db: db}
}

func (r *GormStaffDirectory) FindDeliveryPartner(ctx context.Context, userID uint) (*domain.DeliveryPartner, error) {
	var model staffModel
	err := dbFrom(ctx, r.db).First(&model, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPartnerNotFound
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to load delivery partner", err)
	}
	return &domain.DeliveryPartner{
		ID:      model.ID,
		Role:    identity.Role(model.Role),
		StoreID: model.StoreID,
		Active:  model.Active,
	}, nil
}

// GormStoreDirectory 是 StoreDirectory 的 GORM 实现，只读查询 stores 表。
type GormStoreDirectory struct {
	db *gorm.DB
}

func NewGormStoreDirectory(db *gorm.DB) *GormStoreDirectory {
	return &GormStoreDirectory{db: db}
}

func (r *GormStoreDirectory) Exists(ctx context.Context, storeID uint) (bool, error) {
	var count int64
	err := dbFrom(ctx, r.db).Model(&storeModel{}).Where("id = ? AND active = ?", storeID, true).Count(&count).Error
	if err != nil {
		return false, apperr.Wrap(apperr.Internal, "failed to check store", err)
	}
	return count > 0, nil
}
