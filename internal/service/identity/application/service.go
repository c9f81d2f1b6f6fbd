// internal/service/identity/application/service.go
package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"dispatch/internal/pkg/apperr"
	"dispatch/internal/pkg/logger"
	"dispatch/internal/service/identity/domain"
)

// IdentityApplicationService 编排账号注册、登录、token 生命周期。
type IdentityApplicationService struct {
	users     domain.UserRepository
	tokens    domain.TokenStore
	customers domain.CustomerDirectory
	tokenTTL  time.Duration
	tracer    trace.Tracer
}

func NewIdentityApplicationService(users domain.UserRepository, tokens domain.TokenStore, customers domain.CustomerDirectory, tokenTTL time.Duration, tracer trace.Tracer) *IdentityApplicationService {
	return &IdentityApplicationService{users: users, tokens: tokens, customers: customers, tokenTTL: tokenTTL, tracer: tracer}
}

// RegisterStaff 创建一个工作人员账号。
// 调用方的权限（ADMIN 可建任意角色/门店，经理只能为本店建配送员）在这里集中判定。
func (s *IdentityApplicationService) RegisterStaff(ctx context.Context, actor domain.Identity, req *RegisterStaffRequest) (*UserView, error) {
	ctx, span := s.tracer.Start(ctx, "identity.RegisterStaff")
	defer span.End()

	if !req.Role.Valid() || req.Role == domain.RoleCustomer {
		return nil, apperr.New(apperr.Validation, "invalid staff role")
	}
	if req.Role != domain.RoleAdmin && req.StoreID == nil {
		return nil, apperr.New(apperr.Validation, "storeId is required for store-bound roles")
	}

	switch actor.Role {
	case domain.RoleAdmin:
		// 不受限
	case domain.RoleStoreManager:
		if req.Role != domain.RoleDeliveryBoy || req.StoreID == nil || !domain.CanManageStore(actor, *req.StoreID) {
			return nil, apperr.New(apperr.Forbidden, "access denied")
		}
	default:
		return nil, apperr.New(apperr.Forbidden, "access denied")
	}

	if existing, err := s.users.FindByPhone(ctx, req.Phone); err == nil && existing != nil {
		return nil, domain.ErrPhoneTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to hash password", err)
	}

	user := &domain.User{
		Name:         req.Name,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         req.Role,
		StoreID:      req.StoreID,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create user")
		return nil, err
	}

	logger.Ctx(ctx).Info().Uint("user_id", user.ID).Str("role", string(user.Role)).Msg("staff account created")
	view := toUserView(user)
	return &view, nil
}

// RegisterCustomerAccount 为已有顾客档案创建登录账号（角色 CUSTOMER）。
// 仅管理员或档案所在门店的经理可操作；每个档案至多绑定一个账号。
func (s *IdentityApplicationService) RegisterCustomerAccount(ctx context.Context, actor domain.Identity, customerID uint, req *RegisterCustomerAccountRequest) (*UserView, error) {
	ctx, span := s.tracer.Start(ctx, "identity.RegisterCustomerAccount")
	defer span.End()

	storeID, err := s.customers.FindCustomerStore(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !domain.CanManageStore(actor, storeID) {
		return nil, apperr.New(apperr.Forbidden, "access denied")
	}

	if existing, err := s.users.FindByCustomerID(ctx, customerID); err == nil && existing != nil {
		return nil, domain.ErrAccountExists
	}
	if existing, err := s.users.FindByPhone(ctx, req.Phone); err == nil && existing != nil {
		return nil, domain.ErrPhoneTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to hash password", err)
	}

	user := &domain.User{
		Name:         req.Name,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         domain.RoleCustomer,
		StoreID:      &storeID,
		CustomerID:   &customerID,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create user")
		return nil, err
	}

	logger.Ctx(ctx).Info().Uint("user_id", user.ID).Uint("customer_id", customerID).Msg("customer account created")
	view := toUserView(user)
	return &view, nil
}

// Login 校验凭证并签发 bearer token。
func (s *IdentityApplicationService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	ctx, span := s.tracer.Start(ctx, "identity.Login")
	defer span.End()

	user, err := s.users.FindByPhone(ctx, req.Phone)
	if err != nil {
		// 统一返回凭证错误，不区分"账号不存在"与"密码错误"
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, domain.ErrUserInactive
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	identity := domain.Identity{
		UserID:     user.ID,
		Role:       user.Role,
		StoreID:    user.StoreID,
		CustomerID: user.CustomerID,
	}
	token, err := s.tokens.Issue(ctx, identity, s.tokenTTL)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Wrap(apperr.Internal, "failed to issue token", err)
	}

	logger.Ctx(ctx).Info().Uint("user_id", user.ID).Msg("user logged in")
	return &LoginResponse{Token: token, User: toUserView(user)}, nil
}

// Logout 吊销当前 token。
func (s *IdentityApplicationService) Logout(ctx context.Context, token string) error {
	ctx, span := s.tracer.Start(ctx, "identity.Logout")
	defer span.End()
	return s.tokens.Revoke(ctx, token)
}

// Verify 校验 token 并返回行为主体。供 HTTP 中间件与事件网关使用。
func (s *IdentityApplicationService) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	return s.tokens.Verify(ctx, token)
}

// ListDeliveryPartners 列出某门店的配送员。
func (s *IdentityApplicationService) ListDeliveryPartners(ctx context.Context, actor domain.Identity, storeID uint) ([]UserView, error) {
	ctx, span := s.tracer.Start(ctx, "identity.ListDeliveryPartners")
	defer span.End()

	if !domain.CanActOnStore(actor, storeID) {
		return nil, apperr.New(apperr.Forbidden, "access denied")
	}
	users, err := s.users.ListStaffByStore(ctx, storeID, domain.RoleDeliveryBoy)
	if err != nil {
		return nil, err
	}
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, toUserView(u))
	}
	return views, nil
}

// SetStaffActive 启用/停用一个工作人员账号。
func (s *IdentityApplicationService) SetStaffActive(ctx context.Context, actor domain.Identity, userID uint, active bool) error {
	ctx, span := s.tracer.Start(ctx, "identity.SetStaffActive")
	defer span.End()

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role == domain.RoleAdmin {
		return apperr.New(apperr.Forbidden, "admin accounts cannot be deactivated")
	}
	if user.StoreID == nil || !domain.CanManageStore(actor, *user.StoreID) {
		return apperr.New(apperr.Forbidden, "access denied")
	}
	return s.users.UpdateActive(ctx, userID, active)
}
