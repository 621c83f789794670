package port

import (
	"context"

	"orderflow/internal/service/approval/domain"
)

// NotificationProducer 是通知网关的出站端口。
// 三个方法都是 fire-and-forget 语义：调用方不依赖投递结果。
type NotificationProducer interface {
	// NotifyOrderSubmitted 订单提交成功后通知订单所有者。
	NotifyOrderSubmitted(ctx context.Context, order *domain.Order) error

	// NotifyApproved 审批通过后通知订单所有者，备注取自裁决记录。
	NotifyApproved(ctx context.Context, order *domain.Order) error

	// NotifyRejected 审批拒绝后通知订单所有者，备注取自裁决记录。
	NotifyRejected(ctx context.Context, order *domain.Order) error
}
