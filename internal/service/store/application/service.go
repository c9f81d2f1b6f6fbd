// internal/service/store/application/service.go
package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"dispatch/internal/pkg/logger"
	identity "dispatch/internal/service/identity/domain"
	"dispatch/internal/service/store/domain"
)

type StoreRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=100"`
	Address string `json:"address" binding:"max=500"`
	Phone   string `json:"phone" binding:"max=20"`
}

type StoreView struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toStoreView(s *domain.Store) *StoreView {
	return &StoreView{
		ID:        s.ID,
		Name:      s.Name,
		Address:   s.Address,
		Phone:     s.Phone,
		Active:    s.Active,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// StoreApplicationService 编排门店管理。写路径仅限管理员；
// 删除带历史订单的门店降级为停用。
type StoreApplicationService struct {
	stores domain.StoreRepository
	orders domain.OrderCounter
	tracer trace.Tracer
}

func NewStoreApplicationService(stores domain.StoreRepository, orders domain.OrderCounter, tracer trace.Tracer) *StoreApplicationService {
	return &StoreApplicationService{stores: stores, orders: orders, tracer: tracer}
}

// Create 新建门店（仅管理员）。
func (s *StoreApplicationService) Create(ctx context.Context, actor identity.Identity, req *StoreRequest) (*StoreView, error) {
	ctx, span := s.tracer.Start(ctx, "store.Create")
	defer span.End()

	if actor.Role != identity.RoleAdmin {
		return nil, identity.ErrAccessDenied
	}
	store, err := domain.NewStore(req.Name, req.Address, req.Phone)
	if err != nil {
		return nil, err
	}
	if err := s.stores.Create(ctx, store); err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Info().Uint("store_id", store.ID).Str("name", store.Name).Msg("store created")
	return toStoreView(store), nil
}

// Update 更新门店档案（仅管理员）。
func (s *StoreApplicationService) Update(ctx context.Context, actor identity.Identity, storeID uint, req *StoreRequest) (*StoreView, error) {
	ctx, span := s.tracer.Start(ctx, "store.Update")
	defer span.End()

	if actor.Role != identity.RoleAdmin {
		return nil, identity.ErrAccessDenied
	}
	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if err := store.UpdateProfile(req.Name, req.Address, req.Phone, time.Now()); err != nil {
		return nil, err
	}
	if err := s.stores.Update(ctx, store); err != nil {
		return nil, err
	}
	return toStoreView(store), nil
}

// Get 返回单个门店。门店工作人员只能看自己的门店。
func (s *StoreApplicationService) Get(ctx context.Context, actor identity.Identity, storeID uint) (*StoreView, error) {
	ctx, span := s.tracer.Start(ctx, "store.Get")
	defer span.End()

	if !identity.CanActOnStore(actor, storeID) {
		return nil, identity.ErrAccessDenied
	}
	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return toStoreView(store), nil
}

// List 列出门店（仅管理员）。
func (s *StoreApplicationService) List(ctx context.Context, actor identity.Identity, includeInactive bool) ([]*StoreView, error) {
	ctx, span := s.tracer.Start(ctx, "store.List")
	defer span.End()

	if actor.Role != identity.RoleAdmin {
		return nil, identity.ErrAccessDenied
	}
	stores, err := s.stores.List(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	views := make([]*StoreView, 0, len(stores))
	for _, st := range stores {
		views = append(views, toStoreView(st))
	}
	return views, nil
}

// Remove 删除门店（仅管理员）。存在历史订单时降级为停用，返回最终状态。
func (s *StoreApplicationService) Remove(ctx context.Context, actor identity.Identity, storeID uint) (deactivated bool, err error) {
	ctx, span := s.tracer.Start(ctx, "store.Remove")
	defer span.End()

	if actor.Role != identity.RoleAdmin {
		return false, identity.ErrAccessDenied
	}
	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		return false, err
	}
	count, err := s.orders.CountByStore(ctx, storeID)
	if err != nil {
		return false, err
	}
	if count > 0 {
		store.Deactivate(time.Now())
		if err := s.stores.Update(ctx, store); err != nil {
			return false, err
		}
		logger.Ctx(ctx).Info().Uint("store_id", storeID).Int64("orders", count).Msg("store deactivated instead of deleted")
		return true, nil
	}
	if err := s.stores.Delete(ctx, storeID); err != nil {
		return false, err
	}
	logger.Ctx(ctx).Info().Uint("store_id", storeID).Msg("store deleted")
	return false, nil
}
