// internal/service/approval/domain/event.go
package domain

import "time"

// NotificationKind 标识一条通知事件对应的业务节点
type NotificationKind string

const (
	NotificationOrderSubmitted NotificationKind = "ORDER_SUBMITTED"
	NotificationOrderApproved  NotificationKind = "ORDER_APPROVED"
	NotificationOrderRejected  NotificationKind = "ORDER_REJECTED"
)

// NotificationEvent 是发往通知网关的领域事件载体。
// 通知是 best-effort 的旁路副作用：投递失败只记日志，绝不回滚业务裁决。
type NotificationEvent struct {
	EventID string           `json:"eventId"`
	Kind    NotificationKind `json:"kind"`
	OrderID string           `json:"orderId"`
	OwnerID string           `json:"ownerId"`
	Message string           `json:"message"`
	Remarks string           `json:"remarks,omitempty"`
	At      time.Time        `json:"at"`
}
