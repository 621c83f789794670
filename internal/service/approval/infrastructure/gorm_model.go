package infrastructure

import (
	"database/sql"
	"time"
)

// OrderModel 对应数据库中的 approval_order 表
type OrderModel struct {
	ID             string  `gorm:"primaryKey;type:varchar(36)"`
	OwnerID        string  `gorm:"type:varchar(36);index;not null"`
	Subtotal       float64 `gorm:"type:decimal(12,2)"`
	TaxAmount      float64 `gorm:"type:decimal(12,2)"`
	Total          float64 `gorm:"type:decimal(12,2)"`
	ApprovalStatus string  `gorm:"type:varchar(16);index;not null"`
	OrderStatus    string  `gorm:"type:varchar(24);index;not null"`

	// 裁决记录（仅在已通过/已拒绝后非空）
	DecidedBy       sql.NullString `gorm:"type:varchar(36)"`
	DecidedAt       sql.NullTime
	DecisionRemarks sql.NullString `gorm:"type:text"`

	// 支付记录（仅在支付成功后非空）
	PaymentMethod sql.NullString `gorm:"type:varchar(32)"`
	ProviderTxnID sql.NullString `gorm:"type:varchar(64)"`
	PaidAt        sql.NullTime

	// 乐观锁版本号，所有更新都带 WHERE version = ? 条件
	Version int64 `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Items []OrderItemModel `gorm:"foreignKey:OrderID"`
}

// TableName 指定 GORM 应该使用的表名
func (OrderModel) TableName() string {
	return "approval_order"
}

// OrderItemModel 对应数据库中的 approval_order_item 表
type OrderItemModel struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"`
	OrderID   string  `gorm:"type:varchar(36);index;not null"`
	ProductID string  `gorm:"type:varchar(36);not null"`
	Quantity  int     `gorm:"not null"`
	UnitPrice float64 `gorm:"type:decimal(12,2)"`
}

// TableName 指定 GORM 应该使用的表名
func (OrderItemModel) TableName() string {
	return "approval_order_item"
}
