// internal/service/approval/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound 引用的订单不存在。不可重试。
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidState 在当前状态下不允许发起该流转（重复裁决、重复提交）。
	// 不可重试，调用方应当重新读取订单状态后停止。
	ErrInvalidState = errors.New("invalid order state")

	// ErrValidation 输入不合法（例如拒绝时备注为空）。调用方修正输入后重试。
	ErrValidation = errors.New("validation failed")

	// ErrVersionConflict 乐观锁写入失败：读到的版本在写回前被其他请求改掉了。
	// 由仓储层返回，应用层会把它翻译成 ErrInvalidState 暴露给调用方。
	ErrVersionConflict = errors.New("order version conflict")
)

// GateReason 是支付闸门拒绝放行的原因码
type GateReason string

const (
	GateReasonNotYetApproved GateReason = "NOT_YET_APPROVED" // 订单还未通过审批
	GateReasonRejected       GateReason = "REJECTED"         // 订单已被拒绝
	GateReasonAlreadyPaid    GateReason = "ALREADY_PAID"     // 履约状态已越过支付环节
)

// GateError 表示一次被支付闸门拦下的支付尝试。
// 对同一订单快照不可重试；只有在订单状态可能变化后重新调用 IsPayable 才有意义。
type GateError struct {
	Reason  GateReason
	OrderID string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("payment not authorized for order %s: %s", e.OrderID, e.Reason)
}
