// internal/service/customer/application/service.go
package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"dispatch/internal/pkg/logger"
	"dispatch/internal/service/customer/domain"
	"dispatch/internal/service/customer/port"
	identity "dispatch/internal/service/identity/domain"
)

// CustomerApplicationService 编排顾客档案与清账路径。
// 档案写入与清账都是门店范围操作；清账与凭证写入在同一事务内完成。
type CustomerApplicationService struct {
	uow        domain.UnitOfWork
	customers  domain.CustomerRepository
	clearances domain.ClearanceRepository
	cache      port.CacheInvalidator
	tracer     trace.Tracer
}

func NewCustomerApplicationService(
	uow domain.UnitOfWork,
	customers domain.CustomerRepository,
	clearances domain.ClearanceRepository,
	cache port.CacheInvalidator,
	tracer trace.Tracer,
) *CustomerApplicationService {
	return &CustomerApplicationService{
		uow: uow, customers: customers, clearances: clearances,
		cache: cache, tracer: tracer,
	}
}

// Create 在指定门店建立顾客档案。电话在门店内的唯一性由数据库唯一索引裁决。
func (s *CustomerApplicationService) Create(ctx context.Context, actor identity.Identity, storeID uint, req *CreateCustomerRequest) (*CustomerView, error) {
	ctx, span := s.tracer.Start(ctx, "customer.Create")
	defer span.End()

	if !identity.CanManageStore(actor, storeID) {
		return nil, identity.ErrAccessDenied
	}
	customer, err := domain.NewCustomer(req.Name, req.Phone, req.Address, storeID)
	if err != nil {
		return nil, err
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Info().Uint("customer_id", customer.ID).Uint("store_id", storeID).Msg("customer created")
	return toCustomerView(customer), nil
}

// Update 更新顾客档案字段。
func (s *CustomerApplicationService) Update(ctx context.Context, actor identity.Identity, customerID uint, req *UpdateCustomerRequest) (*CustomerView, error) {
	ctx, span := s.tracer.Start(ctx, "customer.Update")
	defer span.End()

	var updated *domain.Customer
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		customer, err := s.customers.FindByID(txCtx, customerID, true)
		if err != nil {
			return err
		}
		if !identity.CanManageStore(actor, customer.StoreID) {
			return identity.ErrAccessDenied
		}
		if err := customer.UpdateProfile(req.Name, req.Phone, req.Address, time.Now()); err != nil {
			return err
		}
		if err := s.customers.Update(txCtx, customer); err != nil {
			return err
		}
		updated = customer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toCustomerView(updated), nil
}

// Get 按角色范围返回顾客档案。
func (s *CustomerApplicationService) Get(ctx context.Context, actor identity.Identity, customerID uint) (*CustomerView, error) {
	ctx, span := s.tracer.Start(ctx, "customer.Get")
	defer span.End()

	customer, err := s.customers.FindByID(ctx, customerID, false)
	if err != nil {
		return nil, err
	}
	if !identity.CanViewCustomer(actor, customer.ID, customer.StoreID) {
		return nil, identity.ErrAccessDenied
	}
	return toCustomerView(customer), nil
}

// List 列出门店的顾客。经理仅限自己的门店。
func (s *CustomerApplicationService) List(ctx context.Context, actor identity.Identity, filter domain.ListFilter) ([]*CustomerView, error) {
	ctx, span := s.tracer.Start(ctx, "customer.List")
	defer span.End()

	if !identity.CanActOnStore(actor, filter.StoreID) || actor.Role == identity.RoleCustomer {
		return nil, identity.ErrAccessDenied
	}
	customers, err := s.customers.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]*CustomerView, 0, len(customers))
	for _, c := range customers {
		views = append(views, toCustomerView(c))
	}
	return views, nil
}

// ClearDues 处理一次还款：行锁加载、截断式扣减、写入清账凭证，同一事务提交。
// 提交后失效门店报表缓存（尽力而为）。
func (s *CustomerApplicationService) ClearDues(ctx context.Context, actor identity.Identity, customerID uint, req *ClearDuesRequest) (*CustomerView, error) {
	ctx, span := s.tracer.Start(ctx, "customer.ClearDues")
	defer span.End()

	var updated *domain.Customer
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		customer, err := s.customers.FindByID(txCtx, customerID, true)
		if err != nil {
			return err
		}
		if !identity.CanManageStore(actor, customer.StoreID) {
			return identity.ErrAccessDenied
		}
		clearance, err := customer.ReduceDues(req.Amount, req.Method, req.Note, time.Now())
		if err != nil {
			return err
		}
		if err := s.customers.Update(txCtx, customer); err != nil {
			return err
		}
		if err := s.clearances.Create(txCtx, clearance); err != nil {
			return err
		}
		updated = customer
		return nil
	})
	if err != nil {
		return nil, err
	}

	effectCtx := context.WithoutCancel(ctx)
	if err := s.cache.InvalidateStore(effectCtx, updated.StoreID); err != nil {
		logger.Ctx(effectCtx).Error().Err(err).Uint("store_id", updated.StoreID).Msg("report cache invalidation failed")
	}
	logger.Ctx(ctx).Info().
		Uint("customer_id", customerID).
		Float64("amount", req.Amount).
		Float64("remaining_dues", updated.TotalDues).
		Msg("dues cleared")
	return toCustomerView(updated), nil
}

// ListClearances 返回顾客的清账历史。
func (s *CustomerApplicationService) ListClearances(ctx context.Context, actor identity.Identity, customerID uint) ([]*ClearanceView, error) {
	ctx, span := s.tracer.Start(ctx, "customer.ListClearances")
	defer span.End()

	customer, err := s.customers.FindByID(ctx, customerID, false)
	if err != nil {
		return nil, err
	}
	if !identity.CanViewCustomer(actor, customer.ID, customer.StoreID) {
		return nil, identity.ErrAccessDenied
	}
	clearances, err := s.clearances.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	views := make([]*ClearanceView, 0, len(clearances))
	for _, cl := range clearances {
		views = append(views, toClearanceView(cl))
	}
	return views, nil
}
