package domain

import (
	"strings"
	"testing"
	"time"

	"dispatch/internal/pkg/apperr"
	identity "dispatch/internal/service/identity/domain"
)

func newTestOrder(t *testing.T, amount float64) *Order {
	t.Helper()
	order, err := NewOrder("ORD-20260831-TEST01", 7, 3, amount, []OrderItem{{Description: "milk", Quantity: 2}}, "")
	if err != nil {
		t.Fatalf("NewOrder failed: %v", err)
	}
	order.ID = 42
	return order
}

func TestNewOrder_Validation(t *testing.T) {
	if _, err := NewOrder("ORD-1", 1, 1, 0, []OrderItem{{Description: "x", Quantity: 1}}, ""); !apperr.IsKind(err, apperr.InvalidAmount) {
		t.Errorf("zero amount: expected InvalidAmount, got %v", err)
	}
	if _, err := NewOrder("ORD-1", 1, 1, -5, []OrderItem{{Description: "x", Quantity: 1}}, ""); !apperr.IsKind(err, apperr.InvalidAmount) {
		t.Errorf("negative amount: expected InvalidAmount, got %v", err)
	}
	if _, err := NewOrder("ORD-1", 1, 1, 10, nil, ""); !apperr.IsKind(err, apperr.Validation) {
		t.Errorf("empty items: expected Validation, got %v", err)
	}
}

func TestCanTransition_Matrix(t *testing.T) {
	allStatuses := []Status{
		StatusCreated, StatusAssigned, StatusOutForDelivery,
		StatusDelivered, StatusCancelled, StatusReturned, StatusPartialReturned,
	}
	allowed := map[Event]map[Status]bool{
		EventAssign:        {StatusCreated: true},
		EventStartDelivery: {StatusAssigned: true},
		EventDeliver:       {StatusOutForDelivery: true},
		EventCancel:        {StatusCreated: true, StatusAssigned: true},
		EventReturn:        {StatusDelivered: true},
		EventEdit:          {StatusCreated: true, StatusAssigned: true, StatusOutForDelivery: true},
	}

	for event, want := range allowed {
		for _, from := range allStatuses {
			got := CanTransition(from, event)
			if got != want[from] {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, event, got, want[from])
			}
		}
	}
}

func TestStatus_Terminal(t *testing.T) {
	terminal := []Status{StatusDelivered, StatusCancelled, StatusReturned, StatusPartialReturned}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusCreated, StatusAssigned, StatusOutForDelivery} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestOrder_FullLifecycle_Cash(t *testing.T) {
	order := newTestOrder(t, 250)
	assignedAt := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	delivery, err := order.Assign(9, assignedAt)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if order.Status != StatusAssigned {
		t.Errorf("expected ASSIGNED, got %s", order.Status)
	}
	if delivery.OrderID != order.ID || delivery.DeliveryPartnerID != 9 {
		t.Errorf("unexpected delivery record: %+v", delivery)
	}
	if order.DeliveryPartnerID == nil || *order.DeliveryPartnerID != 9 {
		t.Error("delivery partner not set on order")
	}

	if err := order.StartDelivery(assignedAt.Add(5 * time.Minute)); err != nil {
		t.Fatalf("StartDelivery failed: %v", err)
	}
	if order.Status != StatusOutForDelivery {
		t.Errorf("expected OUT_FOR_DELIVERY, got %s", order.Status)
	}

	delta, err := order.Deliver(PaymentCash, assignedAt.Add(37*time.Minute))
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if order.Status != StatusDelivered {
		t.Errorf("expected DELIVERED, got %s", order.Status)
	}
	if order.PaymentStatus != PaymentPaid {
		t.Errorf("expected PAID, got %s", order.PaymentStatus)
	}
	if delta.SalesDelta != 250 || delta.DuesDelta != 0 {
		t.Errorf("cash delivery: expected delta {250 0}, got %+v", delta)
	}
	if got := order.DeliveryTimeMinutes(); got != 37 {
		t.Errorf("expected 37 delivery minutes, got %d", got)
	}
}

func TestOrder_Deliver_CustomerCredit(t *testing.T) {
	order := newTestOrder(t, 120)
	now := time.Now()
	if _, err := order.Assign(9, now); err != nil {
		t.Fatal(err)
	}
	if err := order.StartDelivery(now); err != nil {
		t.Fatal(err)
	}

	delta, err := order.Deliver(PaymentCustomerCredit, now)
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if delta.SalesDelta != 120 || delta.DuesDelta != 120 {
		t.Errorf("credit delivery: expected delta {120 120}, got %+v", delta)
	}
}

func TestOrder_Deliver_WrongState(t *testing.T) {
	order := newTestOrder(t, 100)
	if _, err := order.Deliver(PaymentCash, time.Now()); !apperr.IsKind(err, apperr.Conflict) {
		t.Errorf("deliver from CREATED: expected Conflict, got %v", err)
	}
}

func TestOrder_DeliveryTimeMinutes_BeforeDelivery(t *testing.T) {
	order := newTestOrder(t, 100)
	if got := order.DeliveryTimeMinutes(); got != 0 {
		t.Errorf("expected 0 before delivery, got %d", got)
	}
}

func TestOrder_Cancel(t *testing.T) {
	order := newTestOrder(t, 100)
	order.Notes = "leave at door"
	if err := order.Cancel("customer unavailable", time.Now()); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if order.Status != StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", order.Status)
	}
	if !strings.Contains(order.Notes, "cancelled: customer unavailable") {
		t.Errorf("cancellation reason not recorded in notes: %q", order.Notes)
	}
	if !order.Deletable() {
		t.Error("cancelled order should be deletable")
	}
}

func TestOrder_Cancel_AfterOutForDelivery(t *testing.T) {
	order := newTestOrder(t, 100)
	now := time.Now()
	if _, err := order.Assign(9, now); err != nil {
		t.Fatal(err)
	}
	if err := order.StartDelivery(now); err != nil {
		t.Fatal(err)
	}
	if err := order.Cancel("too late", now); !apperr.IsKind(err, apperr.Conflict) {
		t.Errorf("cancel after OUT_FOR_DELIVERY: expected Conflict, got %v", err)
	}
}

func deliveredOrder(t *testing.T, amount float64, method PaymentMethod) *Order {
	t.Helper()
	order := newTestOrder(t, amount)
	now := time.Now()
	if _, err := order.Assign(9, now); err != nil {
		t.Fatal(err)
	}
	if err := order.StartDelivery(now); err != nil {
		t.Fatal(err)
	}
	if _, err := order.Deliver(method, now); err != nil {
		t.Fatal(err)
	}
	return order
}

func TestOrder_ApplyReturn_Full(t *testing.T) {
	order := deliveredOrder(t, 200, PaymentCash)
	ret, delta, err := order.ApplyReturn(ReturnFull, 200, PaymentCash, "damaged", time.Now())
	if err != nil {
		t.Fatalf("ApplyReturn failed: %v", err)
	}
	if order.Status != StatusReturned {
		t.Errorf("full refund: expected RETURNED, got %s", order.Status)
	}
	if order.PaymentStatus != PaymentRefunded {
		t.Errorf("expected REFUNDED, got %s", order.PaymentStatus)
	}
	if ret.RefundAmount != 200 || ret.Type != ReturnFull {
		t.Errorf("unexpected return record: %+v", ret)
	}
	if delta.SalesDelta != -200 {
		t.Errorf("expected sales delta -200, got %v", delta.SalesDelta)
	}
}

func TestOrder_ApplyReturn_Partial(t *testing.T) {
	order := deliveredOrder(t, 200, PaymentCash)
	_, _, err := order.ApplyReturn(ReturnPartial, 80, PaymentCash, "", time.Now())
	if err != nil {
		t.Fatalf("ApplyReturn failed: %v", err)
	}
	if order.Status != StatusPartialReturned {
		t.Errorf("partial refund: expected PARTIAL_RETURNED, got %s", order.Status)
	}
}

func TestOrder_ApplyReturn_ExceedsInvoice(t *testing.T) {
	order := deliveredOrder(t, 200, PaymentCash)
	_, _, err := order.ApplyReturn(ReturnPartial, 201, PaymentCash, "", time.Now())
	if !apperr.IsKind(err, apperr.InvalidAmount) {
		t.Errorf("expected InvalidAmount, got %v", err)
	}
	if order.Status != StatusDelivered {
		t.Errorf("rejected return must not change status, got %s", order.Status)
	}
}

func TestOrder_ApplyReturn_BeforeDelivery(t *testing.T) {
	order := newTestOrder(t, 200)
	_, _, err := order.ApplyReturn(ReturnFull, 200, PaymentCash, "", time.Now())
	if !apperr.IsKind(err, apperr.Conflict) {
		t.Errorf("expected Conflict, got %v", err)
	}
}

// 欠款扣减规则：原单赊账且退款不走赊账，或退款本身走赊账时，欠款随退款减少。
func TestOrder_ApplyReturn_DuesCoupling(t *testing.T) {
	cases := []struct {
		name         string
		paidWith     PaymentMethod
		refundWith   PaymentMethod
		wantDuesDrop bool
	}{
		{"cash paid, cash refund", PaymentCash, PaymentCash, false},
		{"cash paid, credit refund", PaymentCash, PaymentCustomerCredit, true},
		{"credit paid, cash refund", PaymentCustomerCredit, PaymentCash, true},
		{"credit paid, credit refund", PaymentCustomerCredit, PaymentCustomerCredit, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := deliveredOrder(t, 100, tc.paidWith)
			_, delta, err := order.ApplyReturn(ReturnPartial, 40, tc.refundWith, "", time.Now())
			if err != nil {
				t.Fatalf("ApplyReturn failed: %v", err)
			}
			if delta.SalesDelta != -40 {
				t.Errorf("expected sales delta -40, got %v", delta.SalesDelta)
			}
			wantDues := 0.0
			if tc.wantDuesDrop {
				wantDues = -40
			}
			if delta.DuesDelta != wantDues {
				t.Errorf("expected dues delta %v, got %v", wantDues, delta.DuesDelta)
			}
		})
	}
}

func TestOrder_Edit(t *testing.T) {
	order := newTestOrder(t, 100)
	items := []OrderItem{{Description: "bread", Quantity: 1}}
	if err := order.Edit(150, items, "updated", time.Now()); err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if order.InvoiceAmount != 150 || len(order.Items) != 1 || order.Items[0].Description != "bread" {
		t.Errorf("edit not applied: %+v", order)
	}

	delivered := deliveredOrder(t, 100, PaymentCash)
	if err := delivered.Edit(150, items, "", time.Now()); !apperr.IsKind(err, apperr.Conflict) {
		t.Errorf("edit after delivery: expected Conflict, got %v", err)
	}
	if err := order.Edit(0, items, "", time.Now()); !apperr.IsKind(err, apperr.InvalidAmount) {
		t.Errorf("edit with zero amount: expected InvalidAmount, got %v", err)
	}
}

func uintPtr(v uint) *uint { return &v }

func TestAuthorize_RoleMatrix(t *testing.T) {
	order := newTestOrder(t, 100)
	order.DeliveryPartnerID = uintPtr(21)

	admin := identity.Identity{UserID: 1, Role: identity.RoleAdmin}
	manager := identity.Identity{UserID: 2, Role: identity.RoleStoreManager, StoreID: uintPtr(3)}
	otherManager := identity.Identity{UserID: 3, Role: identity.RoleStoreManager, StoreID: uintPtr(99)}
	assignedPartner := identity.Identity{UserID: 21, Role: identity.RoleDeliveryBoy, StoreID: uintPtr(3)}
	otherPartner := identity.Identity{UserID: 22, Role: identity.RoleDeliveryBoy, StoreID: uintPtr(3)}
	customer := identity.Identity{UserID: 30, Role: identity.RoleCustomer, CustomerID: uintPtr(7)}

	cases := []struct {
		name  string
		actor identity.Identity
		event Event
		want  bool
	}{
		{"admin assigns", admin, EventAssign, true},
		{"manager assigns own store", manager, EventAssign, true},
		{"other-store manager assigns", otherManager, EventAssign, false},
		{"partner assigns", assignedPartner, EventAssign, false},
		{"assigned partner delivers", assignedPartner, EventDeliver, true},
		{"other partner delivers", otherPartner, EventDeliver, false},
		{"manager delivers", manager, EventDeliver, true},
		{"customer cancels", customer, EventCancel, false},
		{"manager edits", manager, EventEdit, true},
		{"partner edits", assignedPartner, EventEdit, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.actor, order, tc.event)
			if tc.want && err != nil {
				t.Errorf("expected allow, got %v", err)
			}
			if !tc.want && err == nil {
				t.Error("expected denial")
			}
		})
	}
}

func TestAuthorizeView(t *testing.T) {
	order := newTestOrder(t, 100)
	order.DeliveryPartnerID = uintPtr(21)

	cases := []struct {
		name  string
		actor identity.Identity
		want  bool
	}{
		{"admin", identity.Identity{UserID: 1, Role: identity.RoleAdmin}, true},
		{"same-store manager", identity.Identity{UserID: 2, Role: identity.RoleStoreManager, StoreID: uintPtr(3)}, true},
		{"other-store manager", identity.Identity{UserID: 2, Role: identity.RoleStoreManager, StoreID: uintPtr(4)}, false},
		{"assigned partner", identity.Identity{UserID: 21, Role: identity.RoleDeliveryBoy, StoreID: uintPtr(3)}, true},
		{"unassigned partner", identity.Identity{UserID: 22, Role: identity.RoleDeliveryBoy, StoreID: uintPtr(3)}, false},
		{"owning customer", identity.Identity{UserID: 30, Role: identity.RoleCustomer, CustomerID: uintPtr(7)}, true},
		{"other customer", identity.Identity{UserID: 31, Role: identity.RoleCustomer, CustomerID: uintPtr(8)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := AuthorizeView(tc.actor, order)
			if tc.want && err != nil {
				t.Errorf("expected allow, got %v", err)
			}
			if !tc.want && err == nil {
				t.Error("expected denial")
			}
		})
	}
}
