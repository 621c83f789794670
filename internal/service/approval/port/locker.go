package port

import "context"

// OrderLocker 提供以订单为粒度的互斥：
// 同一订单上的裁决与支付确认必须串行，防止两个管理员同时裁决、
// 或支付回调与取消操作同时落盘。
type OrderLocker interface {
	// WithLock 持有 orderID 对应的锁执行 fn，返回 fn 的错误。
	// 在超时前拿不到锁时返回错误，fn 不会被执行。
	WithLock(ctx context.Context, orderID string, fn func(ctx context.Context) error) error
}
