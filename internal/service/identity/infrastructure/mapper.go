// internal/service/identity/infrastructure/mapper.go
package infrastructure

import "dispatch/internal/service/identity/domain"

// ToDomainUser 将数据库模型转换为领域模型
func ToDomainUser(model *UserModel) *domain.User {
	if model == nil {
		return nil
	}
	return &domain.User{
		ID:           model.ID,
		Name:         model.Name,
		Phone:        model.Phone,
		PasswordHash: model.PasswordHash,
		Role:         domain.Role(model.Role),
		StoreID:      model.StoreID,
		CustomerID:   model.CustomerID,
		Active:       model.Active,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

// FromDomainUser 将领域模型转换为数据库模型
func FromDomainUser(user *domain.User) *UserModel {
	if user == nil {
		return nil
	}
	return &UserModel{
		ID:           user.ID,
		Name:         user.Name,
		Phone:        user.Phone,
		PasswordHash: user.PasswordHash,
		Role:         string(user.Role),
		StoreID:      user.StoreID,
		CustomerID:   user.CustomerID,
		Active:       user.Active,
	}
}
