// internal/service/order/infrastructure/adapter/cache_redis_adapter.go
package adapter

import (
	"context"
	"fmt"

	"dispatch/internal/pkg/constants"
	"dispatch/internal/pkg/redis"
)

// ReportCacheInvalidator 是 port.CacheInvalidator 的 Redis 实现。
// 失效的 key 集合与 analytics 服务的 read-through key 一一对应。
type ReportCacheInvalidator struct {
	redisClient *redis.Client
}

func NewReportCacheInvalidator(redisClient *redis.Client) *ReportCacheInvalidator {
	return &ReportCacheInvalidator{redisClient: redisClient}
}

// InvalidateStore 删除指定门店的全部报表 key 以及全局报表 key。
func (a *ReportCacheInvalidator) InvalidateStore(ctx context.Context, storeID uint) error {
	keys := make([]string, 0, 2*len(constants.AllReports))
	for _, report := range constants.AllReports {
		keys = append(keys, constants.ReportCacheKey(storeID, report))
		keys = append(keys, constants.GlobalReportCacheKey(report))
	}
	if err := a.redisClient.Del(ctx, keys...); err != nil {
		return fmt.Errorf("cache invalidation for store %d failed: %w", storeID, err)
	}
	return nil
}

// InvalidateGlobal 在门店未知时仅删除全局报表 key。
func (a *ReportCacheInvalidator) InvalidateGlobal(ctx context.Context) error {
	keys := make([]string, 0, len(constants.AllReports))
	for _, report := range constants.AllReports {
		keys = append(keys, constants.GlobalReportCacheKey(report))
	}
	if err := a.redisClient.Del(ctx, keys...); err != nil {
		return fmt.Errorf("global cache invalidation failed: %w", err)
	}
	return nil
}
