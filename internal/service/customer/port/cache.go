// internal/service/customer/port/cache.go
package port

import "context"

// CacheInvalidator 在清账提交后失效门店报表缓存。尽力而为，失败只记日志。
type CacheInvalidator interface {
	InvalidateStore(ctx context.Context, storeID uint) error
}
