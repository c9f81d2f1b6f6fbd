// internal/service/identity/application/service_test.go
package application

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"dispatch/internal/pkg/apperr"
	"dispatch/internal/service/identity/domain"
)

func uintPtr(v uint) *uint { return &v }

type mockUserRepo struct {
	users  map[uint]*domain.User
	nextID uint
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uint]*domain.User), nextID: 1}
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	for _, u := range m.users {
		if u.Phone == user.Phone {
			return domain.ErrPhoneTaken
		}
	}
	user.ID = m.nextID
	m.nextID++
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) FindByCustomerID(ctx context.Context, customerID uint) (*domain.User, error) {
	for _, u := range m.users {
		if u.CustomerID != nil && *u.CustomerID == customerID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) ListStaffByStore(ctx context.Context, storeID uint, role domain.Role) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range m.users {
		if u.StoreID != nil && *u.StoreID == storeID && (role == "" || u.Role == role) {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockUserRepo) UpdateActive(ctx context.Context, id uint, active bool) error {
	u, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Active = active
	return nil
}

type mockTokenStore struct {
	sessions map[string]domain.Identity
	next     int
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{sessions: make(map[string]domain.Identity)}
}

func (m *mockTokenStore) Issue(ctx context.Context, identity domain.Identity, ttl time.Duration) (string, error) {
	m.next++
	token := "tok-" + string(rune('a'+m.next))
	m.sessions[token] = identity
	return token, nil
}

func (m *mockTokenStore) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	id, ok := m.sessions[token]
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	return &id, nil
}

func (m *mockTokenStore) Revoke(ctx context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

type mockCustomerDirectory struct {
	storeByCustomer map[uint]uint
}

func (m *mockCustomerDirectory) FindCustomerStore(ctx context.Context, customerID uint) (uint, error) {
	storeID, ok := m.storeByCustomer[customerID]
	if !ok {
		return 0, apperr.New(apperr.NotFound, "customer not found")
	}
	return storeID, nil
}

type identityFixture struct {
	users     *mockUserRepo
	tokens    *mockTokenStore
	customers *mockCustomerDirectory
	service   *IdentityApplicationService
}

func newIdentityFixture() *identityFixture {
	users := newMockUserRepo()
	tokens := newMockTokenStore()
	customers := &mockCustomerDirectory{storeByCustomer: map[uint]uint{7: 3}}
	tracer := noop.NewTracerProvider().Tracer("test")
	return &identityFixture{
		users:     users,
		tokens:    tokens,
		customers: customers,
		service:   NewIdentityApplicationService(users, tokens, customers, time.Hour, tracer),
	}
}

var (
	admin        = domain.Identity{UserID: 1, Role: domain.RoleAdmin}
	store3Mgr    = domain.Identity{UserID: 2, Role: domain.RoleStoreManager, StoreID: uintPtr(3)}
	store4Mgr    = domain.Identity{UserID: 3, Role: domain.RoleStoreManager, StoreID: uintPtr(4)}
	deliveryBoy3 = domain.Identity{UserID: 4, Role: domain.RoleDeliveryBoy, StoreID: uintPtr(3)}
)

func TestRegisterCustomerAccount_LinksProfileAndLogsIn(t *testing.T) {
	f := newIdentityFixture()

	view, err := f.service.RegisterCustomerAccount(context.Background(), store3Mgr, 7, &RegisterCustomerAccountRequest{
		Name:     "Asha",
		Phone:    "9900112233",
		Password: "secret99",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Role != domain.RoleCustomer {
		t.Errorf("role = %s, want CUSTOMER", view.Role)
	}
	if view.CustomerID == nil || *view.CustomerID != 7 {
		t.Errorf("account not linked to customer profile: %+v", view)
	}
	if view.StoreID == nil || *view.StoreID != 3 {
		t.Errorf("account not bound to the profile's store: %+v", view)
	}

	resp, err := f.service.Login(context.Background(), &LoginRequest{Phone: "9900112233", Password: "secret99"})
	if err != nil {
		t.Fatalf("customer login failed: %v", err)
	}
	actor, err := f.service.Verify(context.Background(), resp.Token)
	if err != nil {
		t.Fatalf("token verify failed: %v", err)
	}
	if actor.Role != domain.RoleCustomer || actor.CustomerID == nil || *actor.CustomerID != 7 {
		t.Errorf("verified identity lost the customer link: %+v", actor)
	}
}

func TestRegisterCustomerAccount_Authorization(t *testing.T) {
	cases := []struct {
		name    string
		actor   domain.Identity
		wantErr bool
	}{
		{"admin allowed", admin, false},
		{"own store manager allowed", store3Mgr, false},
		{"other store manager denied", store4Mgr, true},
		{"delivery partner denied", deliveryBoy3, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newIdentityFixture()
			_, err := f.service.RegisterCustomerAccount(context.Background(), tc.actor, 7, &RegisterCustomerAccountRequest{
				Name: "Asha", Phone: "9900112233", Password: "secret99",
			})
			if tc.wantErr {
				if !apperr.IsKind(err, apperr.Forbidden) {
					t.Errorf("expected forbidden, got %v", err)
				}
				if len(f.users.users) != 0 {
					t.Error("no account may be created on a denied request")
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRegisterCustomerAccount_ProfileAlreadyLinked(t *testing.T) {
	f := newIdentityFixture()

	if _, err := f.service.RegisterCustomerAccount(context.Background(), admin, 7, &RegisterCustomerAccountRequest{
		Name: "Asha", Phone: "9900112233", Password: "secret99",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.service.RegisterCustomerAccount(context.Background(), admin, 7, &RegisterCustomerAccountRequest{
		Name: "Asha Again", Phone: "9900112234", Password: "secret99",
	})
	if !apperr.IsKind(err, apperr.Conflict) {
		t.Errorf("expected conflict for second account, got %v", err)
	}
	if len(f.users.users) != 1 {
		t.Errorf("expected exactly one account, got %d", len(f.users.users))
	}
}

func TestRegisterCustomerAccount_UnknownProfile(t *testing.T) {
	f := newIdentityFixture()
	_, err := f.service.RegisterCustomerAccount(context.Background(), admin, 99, &RegisterCustomerAccountRequest{
		Name: "Ghost", Phone: "9900112233", Password: "secret99",
	})
	if !apperr.IsKind(err, apperr.NotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRegisterStaff_RejectsCustomerRole(t *testing.T) {
	f := newIdentityFixture()
	_, err := f.service.RegisterStaff(context.Background(), admin, &RegisterStaffRequest{
		Name: "Asha", Phone: "9900112233", Password: "secret99",
		Role: domain.RoleCustomer, StoreID: uintPtr(3),
	})
	if !apperr.IsKind(err, apperr.Validation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if len(f.users.users) != 0 {
		t.Error("customer logins go through account linking, not staff registration")
	}
}
