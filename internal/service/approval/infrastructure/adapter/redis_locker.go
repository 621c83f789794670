package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockTTL           = 10 * time.Second
	lockRetryInterval = 50 * time.Millisecond
)

// unlockScript 只有持有者本人才能释放锁，防止误删别人续上的锁
var unlockScript = redis.NewScript(`
-- KEYS[1]: 锁的 Key
-- ARGV[1]: 加锁时写入的持有者 token
if redis.call('get', KEYS[1]) == ARGV[1] then
    return redis.call('del', KEYS[1])
else
    return 0
end
`)

// RedisOrderLocker 基于 Redis SET NX 租约实现 port.OrderLocker。
// TTL 兜底持有者崩溃的场景；正常路径由 Lua 脚本做 compare-and-delete 释放。
type RedisOrderLocker struct {
	client redis.UniversalClient
}

// NewRedisOrderLocker 创建一个新的 Redis 订单锁实例。
func NewRedisOrderLocker(client redis.UniversalClient) *RedisOrderLocker {
	return &RedisOrderLocker{client: client}
}

// WithLock 持有 orderID 对应的锁执行 fn。拿不到锁时按固定间隔重试，
// 直到 ctx 超时或取消。
func (l *RedisOrderLocker) WithLock(ctx context.Context, orderID string, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("approval:lock:{%s}", orderID)
	token := uuid.New().String()

	for {
		ok, err := l.client.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire order lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("gave up waiting for order lock %s: %w", orderID, ctx.Err())
		case <-time.After(lockRetryInterval):
		}
	}

	defer func() {
		// 释放失败不影响调用方：锁最迟会随 TTL 过期
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = unlockScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}()

	return fn(ctx)
}
