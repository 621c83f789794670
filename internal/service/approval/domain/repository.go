// internal/service/approval/domain/repository.go
package domain

import "context"

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，由基础设施层实现。
type OrderRepository interface {
	// Create 首次持久化一个刚提交的订单；订单已存在时返回 ErrInvalidState。
	Create(ctx context.Context, order *Order) error

	// FindByID 根据 ID 查找订单，不存在时返回 ErrOrderNotFound。
	FindByID(ctx context.Context, id string) (*Order, error)

	// FindByOwner 返回某个用户名下的全部订单，按创建时间倒序。
	FindByOwner(ctx context.Context, ownerID string) ([]*Order, error)

	// UpdateWithVersion 以 compare-and-set 语义写回订单：
	// 只有数据库中的版本仍等于 expectedVersion 时才落盘（并把版本 +1），
	// 否则返回 ErrVersionConflict，由调用方决定如何向上暴露。
	UpdateWithVersion(ctx context.Context, order *Order, expectedVersion int64) error
}
