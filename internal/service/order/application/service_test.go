package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace/noop"

	"dispatch/internal/pkg/apperr"
	identity "dispatch/internal/service/identity/domain"
	"dispatch/internal/service/order/domain"
)

// Mock UnitOfWork: 直接执行 fn，并记录回滚次数。
type mockUnitOfWork struct {
	rollbacks int
}

func (m *mockUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		m.rollbacks++
		return err
	}
	return nil
}

type mockOrderRepo struct {
	orders  map[uint]*domain.Order
	nextID  uint
	deleted []uint
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[uint]*domain.Order), nextID: 1}
}

func (m *mockOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	order.ID = m.nextID
	m.nextID++
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) FindByID(ctx context.Context, id uint, forUpdate bool) (*domain.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *mockOrderRepo) Update(ctx context.Context, order *domain.Order) error {
	if _, ok := m.orders[order.ID]; !ok {
		return domain.ErrOrderNotFound
	}
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) ReplaceItems(ctx context.Context, orderID uint, items []domain.OrderItem) error {
	return nil
}

func (m *mockOrderRepo) Delete(ctx context.Context, orderID uint) error {
	delete(m.orders, orderID)
	m.deleted = append(m.deleted, orderID)
	return nil
}

func (m *mockOrderRepo) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range m.orders {
		if filter.StoreID != nil && o.StoreID != *filter.StoreID {
			continue
		}
		if filter.CustomerID != nil && o.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.DeliveryPartnerID != nil &&
			(o.DeliveryPartnerID == nil || *o.DeliveryPartnerID != *filter.DeliveryPartnerID) {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

type mockDeliveryRepo struct {
	byOrderID map[uint]*domain.Delivery
}

func newMockDeliveryRepo() *mockDeliveryRepo {
	return &mockDeliveryRepo{byOrderID: make(map[uint]*domain.Delivery)}
}

func (m *mockDeliveryRepo) Create(ctx context.Context, d *domain.Delivery) error {
	m.byOrderID[d.OrderID] = d
	return nil
}

func (m *mockDeliveryRepo) FindByOrderID(ctx context.Context, orderID uint) (*domain.Delivery, error) {
	d, ok := m.byOrderID[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return d, nil
}

func (m *mockDeliveryRepo) Update(ctx context.Context, d *domain.Delivery) error {
	m.byOrderID[d.OrderID] = d
	return nil
}

type mockReturnRepo struct {
	created []*domain.Return
}

func (m *mockReturnRepo) Create(ctx context.Context, ret *domain.Return) error {
	m.created = append(m.created, ret)
	return nil
}

type mockBalances struct {
	storeByCustomer map[uint]uint
	orderCounts     map[uint]int
	deltas          []domain.BalanceDelta
}

func newMockBalances() *mockBalances {
	return &mockBalances{storeByCustomer: make(map[uint]uint), orderCounts: make(map[uint]int)}
}

func (m *mockBalances) FindStoreID(ctx context.Context, customerID uint) (uint, error) {
	storeID, ok := m.storeByCustomer[customerID]
	if !ok {
		return 0, domain.ErrCustomerNotFound
	}
	return storeID, nil
}

func (m *mockBalances) IncrementOrders(ctx context.Context, customerID uint) error {
	m.orderCounts[customerID]++
	return nil
}

func (m *mockBalances) ApplyDelta(ctx context.Context, customerID uint, delta domain.BalanceDelta) error {
	m.deltas = append(m.deltas, delta)
	return nil
}

type mockStaff struct {
	partners map[uint]*domain.DeliveryPartner
}

func (m *mockStaff) FindDeliveryPartner(ctx context.Context, userID uint) (*domain.DeliveryPartner, error) {
	p, ok := m.partners[userID]
	if !ok {
		return nil, domain.ErrPartnerNotFound
	}
	return p, nil
}

type mockStores struct {
	existing map[uint]bool
}

func (m *mockStores) Exists(ctx context.Context, storeID uint) (bool, error) {
	return m.existing[storeID], nil
}

type mockCache struct {
	storeInvalidations  []uint
	globalInvalidations int
	err                 error
}

func (m *mockCache) InvalidateStore(ctx context.Context, storeID uint) error {
	if m.err != nil {
		return m.err
	}
	m.storeInvalidations = append(m.storeInvalidations, storeID)
	return nil
}

func (m *mockCache) InvalidateGlobal(ctx context.Context) error {
	if m.err != nil {
		return m.err
	}
	m.globalInvalidations++
	return nil
}

type mockEvents struct {
	published []*domain.OrderEvent
	panics    bool
}

func (m *mockEvents) Publish(ctx context.Context, event *domain.OrderEvent) error {
	if m.panics {
		panic("broker gone")
	}
	m.published = append(m.published, event)
	return nil
}

type fixture struct {
	svc        *OrderApplicationService
	uow        *mockUnitOfWork
	orders     *mockOrderRepo
	deliveries *mockDeliveryRepo
	returns    *mockReturnRepo
	balances   *mockBalances
	staff      *mockStaff
	stores     *mockStores
	cache      *mockCache
	events     *mockEvents
}

func newFixture() *fixture {
	f := &fixture{
		uow:        &mockUnitOfWork{},
		orders:     newMockOrderRepo(),
		deliveries: newMockDeliveryRepo(),
		returns:    &mockReturnRepo{},
		balances:   newMockBalances(),
		staff:      &mockStaff{partners: make(map[uint]*domain.DeliveryPartner)},
		stores:     &mockStores{existing: map[uint]bool{3: true}},
		cache:      &mockCache{},
		events:     &mockEvents{},
	}
	f.balances.storeByCustomer[7] = 3
	f.svc = NewOrderApplicationService(
		f.uow, f.orders, f.deliveries, f.returns, f.balances, f.staff, f.stores,
		f.cache, f.events, noop.NewTracerProvider().Tracer("test"),
	)
	return f
}

func uintPtr(v uint) *uint { return &v }

var (
	admin   = identity.Identity{UserID: 1, Role: identity.RoleAdmin}
	manager = identity.Identity{UserID: 2, Role: identity.RoleStoreManager, StoreID: uintPtr(3)}
)

func createRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		CustomerID:    7,
		InvoiceAmount: 150,
		Items:         []OrderItemInput{{Description: "rice 5kg", Quantity: 1}},
	}
}

func (f *fixture) createOrder(t *testing.T) *domain.OrderView {
	t.Helper()
	view, err := f.svc.Create(context.Background(), manager, 3, createRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return view
}

func (f *fixture) eligiblePartner(id uint) {
	f.staff.partners[id] = &domain.DeliveryPartner{
		ID: id, Role: identity.RoleDeliveryBoy, StoreID: uintPtr(3), Active: true,
	}
}

func TestCreate_Success(t *testing.T) {
	f := newFixture()
	view := f.createOrder(t)

	if view.Status != domain.StatusCreated {
		t.Errorf("expected CREATED, got %s", view.Status)
	}
	if !strings.HasPrefix(view.OrderNumber, "ORD-") {
		t.Errorf("unexpected order number format: %s", view.OrderNumber)
	}
	if f.balances.orderCounts[7] != 1 {
		t.Errorf("expected totalOrders increment, got %d", f.balances.orderCounts[7])
	}
	if len(f.events.published) != 1 || f.events.published[0].Name != "order-created" {
		t.Errorf("expected order-created event, got %+v", f.events.published)
	}
	if len(f.cache.storeInvalidations) != 1 || f.cache.storeInvalidations[0] != 3 {
		t.Errorf("expected store cache invalidation, got %v", f.cache.storeInvalidations)
	}
}

func TestCreate_CustomerFromOtherStore(t *testing.T) {
	f := newFixture()
	f.stores.existing[4] = true
	f.balances.storeByCustomer[8] = 4

	req := createRequest()
	req.CustomerID = 8
	_, err := f.svc.Create(context.Background(), admin, 3, req)
	if !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Errorf("expected ErrCustomerNotFound, got %v", err)
	}
	if f.uow.rollbacks != 1 {
		t.Errorf("expected rollback, got %d", f.uow.rollbacks)
	}
	if len(f.events.published) != 0 {
		t.Error("no event should be published for a rolled-back create")
	}
}

func TestCreate_UnknownStore(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), admin, 99, createRequest())
	if !errors.Is(err, domain.ErrStoreNotFound) {
		t.Errorf("expected ErrStoreNotFound, got %v", err)
	}
}

func TestAssign_Success(t *testing.T) {
	f := newFixture()
	f.eligiblePartner(21)
	created := f.createOrder(t)

	view, err := f.svc.Assign(context.Background(), manager, created.ID, &AssignRequest{DeliveryPartnerID: 21})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if view.Status != domain.StatusAssigned {
		t.Errorf("expected ASSIGNED, got %s", view.Status)
	}
	if _, ok := f.deliveries.byOrderID[created.ID]; !ok {
		t.Error("expected a delivery record to be created")
	}
	if len(f.events.published) != 2 || f.events.published[1].Name != "order-assigned" {
		t.Errorf("expected order-assigned event, got %+v", f.events.published)
	}
}

func TestAssign_IneligiblePartner(t *testing.T) {
	f := newFixture()
	created := f.createOrder(t)

	cases := []struct {
		name    string
		partner *domain.DeliveryPartner
	}{
		{"unknown partner", nil},
		{"inactive", &domain.DeliveryPartner{ID: 21, Role: identity.RoleDeliveryBoy, StoreID: uintPtr(3), Active: false}},
		{"wrong role", &domain.DeliveryPartner{ID: 21, Role: identity.RoleStoreManager, StoreID: uintPtr(3), Active: true}},
		{"other store", &domain.DeliveryPartner{ID: 21, Role: identity.RoleDeliveryBoy, StoreID: uintPtr(4), Active: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			delete(f.staff.partners, 21)
			if tc.partner != nil {
				f.staff.partners[21] = tc.partner
			}
			_, err := f.svc.Assign(context.Background(), manager, created.ID, &AssignRequest{DeliveryPartnerID: 21})
			if !errors.Is(err, domain.ErrPartnerNotFound) {
				t.Errorf("expected ErrPartnerNotFound, got %v", err)
			}
			if len(f.deliveries.byOrderID) != 0 {
				t.Error("no delivery record may exist after a rejected assignment")
			}
		})
	}
}

func TestAssign_Forbidden(t *testing.T) {
	f := newFixture()
	f.eligiblePartner(21)
	created := f.createOrder(t)

	otherManager := identity.Identity{UserID: 5, Role: identity.RoleStoreManager, StoreID: uintPtr(99)}
	_, err := f.svc.Assign(context.Background(), otherManager, created.ID, &AssignRequest{DeliveryPartnerID: 21})
	if !apperr.IsKind(err, apperr.Forbidden) {
		t.Errorf("expected Forbidden, got %v", err)
	}
}

func (f *fixture) toDelivered(t *testing.T, method domain.PaymentMethod) *domain.OrderView {
	t.Helper()
	f.eligiblePartner(21)
	created := f.createOrder(t)
	if _, err := f.svc.Assign(context.Background(), manager, created.ID, &AssignRequest{DeliveryPartnerID: 21}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.StartDelivery(context.Background(), manager, created.ID); err != nil {
		t.Fatal(err)
	}
	view, err := f.svc.Deliver(context.Background(), manager, created.ID, &DeliverRequest{PaymentMethod: method})
	if err != nil {
		t.Fatal(err)
	}
	return view
}

func TestDeliver_UpdatesBalancesAndDelivery(t *testing.T) {
	f := newFixture()
	view := f.toDelivered(t, domain.PaymentCustomerCredit)

	if view.Status != domain.StatusDelivered {
		t.Errorf("expected DELIVERED, got %s", view.Status)
	}
	if len(f.balances.deltas) != 1 {
		t.Fatalf("expected one balance delta, got %d", len(f.balances.deltas))
	}
	delta := f.balances.deltas[0]
	if delta.SalesDelta != 150 || delta.DuesDelta != 150 {
		t.Errorf("credit delivery: expected delta {150 150}, got %+v", delta)
	}
	delivery := f.deliveries.byOrderID[view.ID]
	if delivery.DeliveredAt == nil || delivery.DeliveryTimeMinutes == nil {
		t.Errorf("delivery record not completed: %+v", delivery)
	}
}

func TestDeliver_ByAssignedPartner(t *testing.T) {
	f := newFixture()
	f.eligiblePartner(21)
	created := f.createOrder(t)
	if _, err := f.svc.Assign(context.Background(), manager, created.ID, &AssignRequest{DeliveryPartnerID: 21}); err != nil {
		t.Fatal(err)
	}

	partner := identity.Identity{UserID: 21, Role: identity.RoleDeliveryBoy, StoreID: uintPtr(3)}
	if _, err := f.svc.StartDelivery(context.Background(), partner, created.ID); err != nil {
		t.Fatalf("assigned partner should start delivery: %v", err)
	}

	other := identity.Identity{UserID: 22, Role: identity.RoleDeliveryBoy, StoreID: uintPtr(3)}
	_, err := f.svc.Deliver(context.Background(), other, created.ID, &DeliverRequest{PaymentMethod: domain.PaymentCash})
	if !apperr.IsKind(err, apperr.Forbidden) {
		t.Errorf("unassigned partner: expected Forbidden, got %v", err)
	}
}

func TestReturn_PartialRecordsRefund(t *testing.T) {
	f := newFixture()
	view := f.toDelivered(t, domain.PaymentCash)

	ret, err := f.svc.Return(context.Background(), manager, view.ID, &ReturnRequest{
		Type: domain.ReturnPartial, RefundAmount: 60, RefundMethod: domain.PaymentCash,
	})
	if err != nil {
		t.Fatalf("Return failed: %v", err)
	}
	if ret.Status != domain.StatusPartialReturned {
		t.Errorf("expected PARTIAL_RETURNED, got %s", ret.Status)
	}
	if len(f.returns.created) != 1 || f.returns.created[0].RefundAmount != 60 {
		t.Errorf("unexpected return records: %+v", f.returns.created)
	}
	last := f.balances.deltas[len(f.balances.deltas)-1]
	if last.SalesDelta != -60 || last.DuesDelta != 0 {
		t.Errorf("cash-for-cash refund: expected delta {-60 0}, got %+v", last)
	}
}

func TestReturn_RefundExceedsInvoice(t *testing.T) {
	f := newFixture()
	view := f.toDelivered(t, domain.PaymentCash)

	_, err := f.svc.Return(context.Background(), manager, view.ID, &ReturnRequest{
		Type: domain.ReturnFull, RefundAmount: 999, RefundMethod: domain.PaymentCash,
	})
	if !apperr.IsKind(err, apperr.InvalidAmount) {
		t.Errorf("expected InvalidAmount, got %v", err)
	}
	if len(f.returns.created) != 0 {
		t.Error("no return record may exist after rejection")
	}
}

func TestCancel_ThenDelete(t *testing.T) {
	f := newFixture()
	created := f.createOrder(t)

	if _, err := f.svc.Cancel(context.Background(), manager, created.ID, &CancelRequest{Reason: "duplicate"}); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	if err := f.svc.Delete(context.Background(), manager, created.ID); !apperr.IsKind(err, apperr.Forbidden) {
		t.Errorf("manager delete: expected Forbidden, got %v", err)
	}
	if err := f.svc.Delete(context.Background(), admin, created.ID); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}
	if len(f.orders.deleted) != 1 {
		t.Errorf("expected one deletion, got %v", f.orders.deleted)
	}
}

func TestDelete_NonCancelledRejected(t *testing.T) {
	f := newFixture()
	created := f.createOrder(t)
	err := f.svc.Delete(context.Background(), admin, created.ID)
	if !apperr.IsKind(err, apperr.Conflict) {
		t.Errorf("expected Conflict, got %v", err)
	}
}

func TestSideEffectFailure_DoesNotFailTransition(t *testing.T) {
	f := newFixture()
	f.cache.err = errors.New("redis down")
	f.events.panics = true

	view, err := f.svc.Create(context.Background(), manager, 3, createRequest())
	if err != nil {
		t.Fatalf("create must succeed despite side effect failures: %v", err)
	}
	if view.Status != domain.StatusCreated {
		t.Errorf("expected CREATED, got %s", view.Status)
	}
}

func TestList_RoleScoping(t *testing.T) {
	f := newFixture()
	f.eligiblePartner(21)
	created := f.createOrder(t)
	if _, err := f.svc.Assign(context.Background(), manager, created.ID, &AssignRequest{DeliveryPartnerID: 21}); err != nil {
		t.Fatal(err)
	}

	// 管理员不受限
	views, err := f.svc.List(context.Background(), admin, domain.ListFilter{})
	if err != nil || len(views) != 1 {
		t.Errorf("admin list: got %d views, err %v", len(views), err)
	}

	// 经理必须限定自己的门店
	if _, err := f.svc.List(context.Background(), manager, domain.ListFilter{}); !apperr.IsKind(err, apperr.Forbidden) {
		t.Errorf("manager without store filter: expected Forbidden, got %v", err)
	}
	views, err = f.svc.List(context.Background(), manager, domain.ListFilter{StoreID: uintPtr(3)})
	if err != nil || len(views) != 1 {
		t.Errorf("manager list own store: got %d views, err %v", len(views), err)
	}

	// 配送员的查询被收敛到分配给自己的订单
	partner := identity.Identity{UserID: 21, Role: identity.RoleDeliveryBoy, StoreID: uintPtr(3)}
	views, err = f.svc.List(context.Background(), partner, domain.ListFilter{StoreID: uintPtr(3)})
	if err != nil || len(views) != 1 {
		t.Errorf("assigned partner list: got %d views, err %v", len(views), err)
	}
	other := identity.Identity{UserID: 22, Role: identity.RoleDeliveryBoy, StoreID: uintPtr(3)}
	views, err = f.svc.List(context.Background(), other, domain.ListFilter{StoreID: uintPtr(3)})
	if err != nil || len(views) != 0 {
		t.Errorf("unassigned partner list: got %d views, err %v", len(views), err)
	}

	// 顾客只能看自己的订单
	customer := identity.Identity{UserID: 30, Role: identity.RoleCustomer, CustomerID: uintPtr(7)}
	views, err = f.svc.List(context.Background(), customer, domain.ListFilter{})
	if err != nil || len(views) != 1 {
		t.Errorf("customer list: got %d views, err %v", len(views), err)
	}
}

func TestEdit_ReplacesItemsAndInvalidatesCache(t *testing.T) {
	f := newFixture()
	created := f.createOrder(t)
	before := len(f.cache.storeInvalidations)

	view, err := f.svc.Edit(context.Background(), manager, created.ID, &EditOrderRequest{
		InvoiceAmount: 300,
		Items:         []OrderItemInput{{Description: "flour 10kg", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if view.InvoiceAmount != 300 {
		t.Errorf("expected invoice 300, got %v", view.InvoiceAmount)
	}
	if len(f.cache.storeInvalidations) != before+1 {
		t.Error("edit must invalidate the store cache")
	}
	if len(f.events.published) != 1 {
		t.Errorf("edit must not broadcast an event, got %d", len(f.events.published))
	}
}
