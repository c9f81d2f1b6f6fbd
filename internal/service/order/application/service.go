// internal/service/order/application/service.go
package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dispatch/internal/pkg/apperr"
	"dispatch/internal/pkg/constants"
	"dispatch/internal/pkg/logger"
	identity "dispatch/internal/service/identity/domain"
	"dispatch/internal/service/order/domain"
	"dispatch/internal/service/order/port"
)

// OrderApplicationService 编排订单生命周期：守卫判定、事务内状态流转与副作用、
// 提交后的缓存失效与事件发布。缓存与事件是尽力而为的，失败绝不影响主流程。
type OrderApplicationService struct {
	uow        domain.UnitOfWork
	orders     domain.OrderRepository
	deliveries domain.DeliveryRepository
	returns    domain.ReturnRepository
	balances   domain.CustomerBalances
	staff      domain.StaffDirectory
	stores     domain.StoreDirectory

	cache  port.CacheInvalidator
	events port.EventPublisher
	tracer trace.Tracer
}

func NewOrderApplicationService(
	uow domain.UnitOfWork,
	orders domain.OrderRepository,
	deliveries domain.DeliveryRepository,
	returns domain.ReturnRepository,
	balances domain.CustomerBalances,
	staff domain.StaffDirectory,
	stores domain.StoreDirectory,
	cache port.CacheInvalidator,
	events port.EventPublisher,
	tracer trace.Tracer,
) *OrderApplicationService {
	return &OrderApplicationService{
		uow: uow, orders: orders, deliveries: deliveries, returns: returns,
		balances: balances, staff: staff, stores: stores,
		cache: cache, events: events, tracer: tracer,
	}
}

// Create 在指定门店为顾客创建订单（初始状态 CREATED）。
func (s *OrderApplicationService) Create(ctx context.Context, actor identity.Identity, storeID uint, req *CreateOrderRequest) (*domain.OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "order.Create")
	defer span.End()

	if err := domain.AuthorizeCreate(actor, storeID); err != nil {
		return nil, err
	}

	var created *domain.Order
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		exists, err := s.stores.Exists(txCtx, storeID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrStoreNotFound
		}

		customerStore, err := s.balances.FindStoreID(txCtx, req.CustomerID)
		if err != nil {
			return err
		}
		if customerStore != storeID {
			return domain.ErrCustomerNotFound
		}

		order, err := domain.NewOrder(generateOrderNumber(), req.CustomerID, storeID, req.InvoiceAmount, toDomainItems(req.Items), req.Notes)
		if err != nil {
			return err
		}
		if err := s.orders.Create(txCtx, order); err != nil {
			return err
		}
		if err := s.balances.IncrementOrders(txCtx, req.CustomerID); err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order creation failed")
		return nil, err
	}

	span.SetAttributes(attribute.String("order.number", created.OrderNumber))
	orderTransitionsTotal.WithLabelValues(constants.EventOrderCreated).Inc()
	s.runPostCommit(ctx, s.sideEffects(created, constants.EventOrderCreated))
	logger.Ctx(ctx).Info().Str("order_number", created.OrderNumber).Uint("store_id", storeID).Msg("order created")
	return created.ToView(), nil
}

// Assign 把订单分配给一个配送员。目标配送员必须在职、角色正确、且属于订单所在门店。
func (s *OrderApplicationService) Assign(ctx context.Context, actor identity.Identity, orderID uint, req *AssignRequest) (*domain.OrderView, error) {
	return s.transition(ctx, actor, orderID, domain.EventAssign, func(txCtx context.Context, order *domain.Order) error {
		partner, err := s.staff.FindDeliveryPartner(txCtx, req.DeliveryPartnerID)
		if err != nil {
			return err
		}
		if !partner.Active || partner.Role != identity.RoleDeliveryBoy ||
			partner.StoreID == nil || *partner.StoreID != order.StoreID {
			return domain.ErrPartnerNotFound
		}

		delivery, err := order.Assign(req.DeliveryPartnerID, time.Now())
		if err != nil {
			return err
		}
		if err := s.orders.Update(txCtx, order); err != nil {
			return err
		}
		return s.deliveries.Create(txCtx, delivery)
	})
}

// StartDelivery 标记订单出发配送，并同步更新履约记录。
func (s *OrderApplicationService) StartDelivery(ctx context.Context, actor identity.Identity, orderID uint) (*domain.OrderView, error) {
	return s.transition(ctx, actor, orderID, domain.EventStartDelivery, func(txCtx context.Context, order *domain.Order) error {
		if err := order.StartDelivery(time.Now()); err != nil {
			return err
		}
		if err := s.orders.Update(txCtx, order); err != nil {
			return err
		}

		delivery, err := s.deliveries.FindByOrderID(txCtx, order.ID)
		if err != nil {
			return err
		}
		delivery.OutForDeliveryAt = order.OutForDeliveryAt
		return s.deliveries.Update(txCtx, delivery)
	})
}

// Deliver 标记订单送达：记录支付方式、计算配送时长、更新顾客累计数据。
func (s *OrderApplicationService) Deliver(ctx context.Context, actor identity.Identity, orderID uint, req *DeliverRequest) (*domain.OrderView, error) {
	return s.transition(ctx, actor, orderID, domain.EventDeliver, func(txCtx context.Context, order *domain.Order) error {
		delta, err := order.Deliver(req.PaymentMethod, time.Now())
		if err != nil {
			return err
		}
		if err := s.orders.Update(txCtx, order); err != nil {
			return err
		}

		delivery, err := s.deliveries.FindByOrderID(txCtx, order.ID)
		if err != nil {
			return err
		}
		delivery.DeliveredAt = order.DeliveredAt
		minutes := order.DeliveryTimeMinutes()
		delivery.DeliveryTimeMinutes = &minutes
		if err := s.deliveries.Update(txCtx, delivery); err != nil {
			return err
		}

		return s.balances.ApplyDelta(txCtx, order.CustomerID, delta)
	})
}

// Cancel 取消尚未进入配送的订单。创建时只累计了 totalOrders，无需统计回滚。
func (s *OrderApplicationService) Cancel(ctx context.Context, actor identity.Identity, orderID uint, req *CancelRequest) (*domain.OrderView, error) {
	return s.transition(ctx, actor, orderID, domain.EventCancel, func(txCtx context.Context, order *domain.Order) error {
		if err := order.Cancel(req.Reason, time.Now()); err != nil {
			return err
		}
		return s.orders.Update(txCtx, order)
	})
}

// Return 处理送达订单的全额/部分退货。
func (s *OrderApplicationService) Return(ctx context.Context, actor identity.Identity, orderID uint, req *ReturnRequest) (*domain.OrderView, error) {
	return s.transition(ctx, actor, orderID, domain.EventReturn, func(txCtx context.Context, order *domain.Order) error {
		ret, delta, err := order.ApplyReturn(req.Type, req.RefundAmount, req.RefundMethod, req.Reason, time.Now())
		if err != nil {
			return err
		}
		if err := s.orders.Update(txCtx, order); err != nil {
			return err
		}
		if err := s.returns.Create(txCtx, ret); err != nil {
			return err
		}
		return s.balances.ApplyDelta(txCtx, order.CustomerID, delta)
	})
}

// Edit 整体替换未送达订单的发票金额与行项目。
func (s *OrderApplicationService) Edit(ctx context.Context, actor identity.Identity, orderID uint, req *EditOrderRequest) (*domain.OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "order.Edit")
	defer span.End()

	var updated *domain.Order
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		order, err := s.orders.FindByID(txCtx, orderID, true)
		if err != nil {
			return err
		}
		if err := domain.Authorize(actor, order, domain.EventEdit); err != nil {
			return err
		}
		if err := order.Edit(req.InvoiceAmount, toDomainItems(req.Items), req.Notes, time.Now()); err != nil {
			return err
		}
		if err := s.orders.Update(txCtx, order); err != nil {
			return err
		}
		if err := s.orders.ReplaceItems(txCtx, order.ID, order.Items); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.runPostCommit(ctx, s.cacheOnlyEffects(updated.StoreID))
	return updated.ToView(), nil
}

// Delete 硬删除订单。仅管理员可删，且仅限已取消的订单；先删行项目再删订单。
func (s *OrderApplicationService) Delete(ctx context.Context, actor identity.Identity, orderID uint) error {
	ctx, span := s.tracer.Start(ctx, "order.Delete")
	defer span.End()

	if actor.Role != identity.RoleAdmin {
		return domain.ErrAccessDenied
	}

	var storeID uint
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		order, err := s.orders.FindByID(txCtx, orderID, true)
		if err != nil {
			return err
		}
		if !order.Deletable() {
			return apperr.Newf(apperr.Conflict, "order is %s, only CANCELLED orders can be deleted", order.Status)
		}
		storeID = order.StoreID
		return s.orders.Delete(txCtx, order.ID)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	s.runPostCommit(ctx, s.cacheOnlyEffects(storeID))
	return nil
}

// Get 按角色范围返回单个订单。
func (s *OrderApplicationService) Get(ctx context.Context, actor identity.Identity, orderID uint) (*domain.OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "order.Get")
	defer span.End()

	order, err := s.orders.FindByID(ctx, orderID, false)
	if err != nil {
		return nil, err
	}
	if err := domain.AuthorizeView(actor, order); err != nil {
		return nil, err
	}
	return order.ToView(), nil
}

// List 按行为主体的角色收敛过滤条件后列出订单。
// 注意：这里的收敛是把请求范围校验后拒绝越权，而不是静默改写查询。
func (s *OrderApplicationService) List(ctx context.Context, actor identity.Identity, filter domain.ListFilter) ([]*domain.OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "order.List")
	defer span.End()

	switch actor.Role {
	case identity.RoleAdmin:
		// 不受限
	case identity.RoleStoreManager:
		if filter.StoreID == nil || !identity.CanActOnStore(actor, *filter.StoreID) {
			return nil, domain.ErrAccessDenied
		}
	case identity.RoleDeliveryBoy:
		if filter.StoreID == nil || !identity.CanActOnStore(actor, *filter.StoreID) {
			return nil, domain.ErrAccessDenied
		}
		filter.DeliveryPartnerID = &actor.UserID
	case identity.RoleCustomer:
		if actor.CustomerID == nil {
			return nil, domain.ErrAccessDenied
		}
		filter.CustomerID = actor.CustomerID
	default:
		return nil, domain.ErrAccessDenied
	}

	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]*domain.OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, o.ToView())
	}
	return views, nil
}

// transition 是所有写路径共用的骨架：行锁加载 -> 守卫 -> 事务内变更 -> 提交后副作用。
func (s *OrderApplicationService) transition(ctx context.Context, actor identity.Identity, orderID uint, event domain.Event, mutate func(txCtx context.Context, order *domain.Order) error) (*domain.OrderView, error) {
	eventName := domain.EventName(event)
	ctx, span := s.tracer.Start(ctx, "order."+string(event))
	defer span.End()
	span.SetAttributes(
		attribute.Int("order.id", int(orderID)),
		attribute.String("order.event", string(event)),
	)

	var updated *domain.Order
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		order, err := s.orders.FindByID(txCtx, orderID, true)
		if err != nil {
			return err
		}
		if err := domain.Authorize(actor, order, event); err != nil {
			return err
		}
		if err := mutate(txCtx, order); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition rejected")
		orderTransitionRejects.WithLabelValues(eventName).Inc()
		return nil, err
	}

	orderTransitionsTotal.WithLabelValues(eventName).Inc()
	s.runPostCommit(ctx, s.sideEffects(updated, eventName))
	logger.Ctx(ctx).Info().
		Str("order_number", updated.OrderNumber).
		Str("event", eventName).
		Str("status", string(updated.Status)).
		Msg("order transition committed")
	return updated.ToView(), nil
}

// postCommitHook 是提交后副作用的一个条目。
type postCommitHook struct {
	name string
	run  func(ctx context.Context) error
}

// sideEffects 构造一次状态变更之后的标准副作用：缓存失效 + 事件发布。
func (s *OrderApplicationService) sideEffects(order *domain.Order, eventName string) []postCommitHook {
	event := domain.NewOrderEvent(eventName, order)
	return []postCommitHook{
		{name: "cache-invalidate", run: func(ctx context.Context) error {
			return s.cache.InvalidateStore(ctx, order.StoreID)
		}},
		{name: "event-publish", run: func(ctx context.Context) error {
			return s.events.Publish(ctx, event)
		}},
	}
}

// cacheOnlyEffects 用于不对外广播的写路径（编辑、删除）。
func (s *OrderApplicationService) cacheOnlyEffects(storeID uint) []postCommitHook {
	return []postCommitHook{
		{name: "cache-invalidate", run: func(ctx context.Context) error {
			if storeID == 0 {
				return s.cache.InvalidateGlobal(ctx)
			}
			return s.cache.InvalidateStore(ctx, storeID)
		}},
	}
}

// runPostCommit 逐个执行提交后副作用。每个副作用独立捕获 panic 与错误，
// 互不影响，也不影响已经提交的主事务和响应。
func (s *OrderApplicationService) runPostCommit(ctx context.Context, hooks []postCommitHook) {
	ctx = context.WithoutCancel(ctx)
	for _, h := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					sideEffectFailures.WithLabelValues(h.name).Inc()
					logger.Ctx(ctx).Error().Interface("panic", r).Str("effect", h.name).Msg("post-commit side effect panicked")
				}
			}()
			if err := h.run(ctx); err != nil {
				sideEffectFailures.WithLabelValues(h.name).Inc()
				logger.Ctx(ctx).Error().Err(err).Str("effect", h.name).Msg("post-commit side effect failed")
			}
		}()
	}
}

// generateOrderNumber 生成人类可读订单编号。唯一性最终由数据库唯一索引保证。
func generateOrderNumber() string {
	suffix := strings.ToUpper(uuid.New().String()[:6])
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102"), suffix)
}
