package infrastructure

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"orderflow/internal/service/approval/domain"
)

// GormOrderRepository 是 domain.OrderRepository 的 GORM/MySQL 实现。
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository 创建一个新的 GORM 仓储实例，并确保表结构存在。
func NewGormOrderRepository(db *gorm.DB) (*GormOrderRepository, error) {
	if err := db.AutoMigrate(&OrderModel{}, &OrderItemModel{}); err != nil {
		return nil, errors.Wrap(err, "migrate approval order tables")
	}
	return &GormOrderRepository{db: db}, nil
}

// Create 首次落盘一个刚提交的订单，行项目在同一事务内一并写入。
// 主键冲突说明订单已经提交过，映射为 ErrInvalidState。
func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	model := FromDomainOrder(order)
	err := r.db.WithContext(ctx).Create(model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Wrapf(domain.ErrInvalidState, "order %s already submitted", order.ID)
		}
		return errors.Wrap(err, "create order")
	}
	return nil
}

// FindByID 根据 ID 查找订单，预加载行项目。
func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "find order by id")
	}
	return ToDomainOrder(&model), nil
}

// FindByOwner 返回某个用户的全部订单，按创建时间倒序。
func (r *GormOrderRepository) FindByOwner(ctx context.Context, ownerID string) ([]*domain.Order, error) {
	var models []OrderModel
	err := r.db.WithContext(ctx).Preload("Items").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "find orders by owner")
	}
	orders := make([]*domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, ToDomainOrder(&models[i]))
	}
	return orders, nil
}

// UpdateWithVersion 以乐观锁语义写回订单：
// UPDATE ... WHERE id = ? AND version = ?，没更新到任何行即为版本冲突。
// 行项目在订单离开初始状态后不可变，这里只写回订单本身的列。
func (r *GormOrderRepository) UpdateWithVersion(ctx context.Context, order *domain.Order, expectedVersion int64) error {
	updates := map[string]interface{}{
		"approval_status": string(order.ApprovalStatus),
		"order_status":    string(order.OrderStatus),
		"version":         expectedVersion + 1,
		"updated_at":      order.UpdatedAt,
	}
	if order.Decision != nil {
		updates["decided_by"] = sql.NullString{String: order.Decision.DecidedBy, Valid: true}
		updates["decided_at"] = sql.NullTime{Time: order.Decision.DecidedAt, Valid: true}
		updates["decision_remarks"] = sql.NullString{String: order.Decision.Remarks, Valid: true}
	}
	if order.Payment != nil {
		updates["payment_method"] = sql.NullString{String: order.Payment.Method, Valid: true}
		updates["provider_txn_id"] = sql.NullString{String: order.Payment.ProviderTxnID, Valid: true}
		updates["paid_at"] = sql.NullTime{Time: order.Payment.ConfirmedAt, Valid: true}
	}

	res := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ? AND version = ?", order.ID, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return errors.Wrap(res.Error, "update order")
	}
	if res.RowsAffected == 0 {
		return domain.ErrVersionConflict
	}
	order.Version = expectedVersion + 1
	return nil
}
