package adapter

import (
	"context"

	"orderflow/internal/zookeeper"
)

// ZkOrderLocker 基于 ZooKeeper 临时顺序节点实现 port.OrderLocker。
// 相比 Redis 租约锁没有 TTL 误超时的问题，适合对互斥要求更严格的部署。
type ZkOrderLocker struct {
	conn *zookeeper.Conn
}

// NewZkOrderLocker 创建一个新的 ZooKeeper 订单锁实例。
func NewZkOrderLocker(conn *zookeeper.Conn) *ZkOrderLocker {
	return &ZkOrderLocker{conn: conn}
}

// WithLock 持有 orderID 对应的锁执行 fn。
func (l *ZkOrderLocker) WithLock(ctx context.Context, orderID string, fn func(ctx context.Context) error) error {
	lock, err := zookeeper.NewDistributedLock(l.conn, orderID)
	if err != nil {
		return err
	}
	if err := lock.Lock(ctx); err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()
	return fn(ctx)
}
