// internal/service/identity/infrastructure/redis_token_store.go
package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/pkg/apperr"
	"dispatch/internal/pkg/redis"
	"dispatch/internal/service/identity/domain"
)

const (
	tokenKeyPrefix  = "auth:token:"
	denylistSetKey  = "auth:denylist"
	denylistMaxSize = 100000 // 防止黑名单无限增长，超过后按 FIFO 近似裁剪
)

// RedisTokenStore 把会话保存在 Redis。token 是不透明的 uuid，
// 吊销时删除会话并写入黑名单集合，校验时先查黑名单。
type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

type sessionPayload struct {
	UserID     uint        `json:"userId"`
	Role       domain.Role `json:"role"`
	StoreID    *uint       `json:"storeId,omitempty"`
	CustomerID *uint       `json:"customerId,omitempty"`
}

func (s *RedisTokenStore) Issue(ctx context.Context, identity domain.Identity, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	payload, err := json.Marshal(sessionPayload{
		UserID:     identity.UserID,
		Role:       identity.Role,
		StoreID:    identity.StoreID,
		CustomerID: identity.CustomerID,
	})
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, tokenKeyPrefix+token, string(payload), ttl); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

func (s *RedisTokenStore) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	denied, err := s.client.GetClient().SIsMember(ctx, denylistSetKey, token).Result()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "token verification unavailable", err)
	}
	if denied {
		return nil, domain.ErrTokenInvalid
	}

	raw, ok, err := s.client.Get(ctx, tokenKeyPrefix+token)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "token verification unavailable", err)
	}
	if !ok {
		return nil, domain.ErrTokenInvalid
	}

	var payload sessionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, domain.ErrTokenInvalid
	}
	return &domain.Identity{
		UserID:     payload.UserID,
		Role:       payload.Role,
		StoreID:    payload.StoreID,
		CustomerID: payload.CustomerID,
	}, nil
}

func (s *RedisTokenStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	pipe := s.client.GetClient().TxPipeline()
	pipe.Del(ctx, tokenKeyPrefix+token)
	pipe.SAdd(ctx, denylistSetKey, token)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	// 黑名单只需要覆盖尚未过期的 token，粗略裁剪即可
	if size, err := s.client.GetClient().SCard(ctx, denylistSetKey).Result(); err == nil && size > denylistMaxSize {
		s.client.GetClient().SPop(ctx, denylistSetKey)
	}
	return nil
}
