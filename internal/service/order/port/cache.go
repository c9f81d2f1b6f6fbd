// internal/service/order/port/cache.go
package port

import "context"

// CacheInvalidator 在订单写路径提交后失效聚合报表缓存。
// 实现必须是尽力而为的：失败只记日志，不影响主流程。
type CacheInvalidator interface {
	// InvalidateStore 失效指定门店的全部报表 key，以及全局报表 key。
	InvalidateStore(ctx context.Context, storeID uint) error
	// InvalidateGlobal 在门店未知时失效全局报表 key。
	InvalidateGlobal(ctx context.Context) error
}
