// internal/service/approval/domain/state.go
package domain

// ApprovalStatus 定义了订单的审批结论轴（每个订单最多被裁决一次）
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"  // 等待管理员审批
	ApprovalApproved ApprovalStatus = "APPROVED" // 审批通过，可以进入支付环节
	ApprovalRejected ApprovalStatus = "REJECTED" // 审批拒绝，订单停留在原状态
)

// OrderStatus 定义了订单的履约进度轴，与审批轴相互独立但受其约束：
// 只有 ApprovalApproved 的订单才允许越过 AWAITING_APPROVAL。
type OrderStatus string

const (
	StatusAwaitingApproval OrderStatus = "AWAITING_APPROVAL" // 已提交，等待审批
	StatusPaymentPending   OrderStatus = "PAYMENT_PENDING"   // 审批通过，等待用户支付
	StatusProcessing       OrderStatus = "PROCESSING"        // 已支付，正在处理
	StatusShipped          OrderStatus = "SHIPPED"           // 已发货
	StatusDelivered        OrderStatus = "DELIVERED"         // 已送达（终态）
	StatusCancelled        OrderStatus = "CANCELLED"         // 已取消（终态）
)

// CanTransition 判断订单当前是否还允许被审批。
// 审批是一次性的：不允许重复通过、重复拒绝，也不允许撤销。
func CanTransition(o *Order) bool {
	return o.ApprovalStatus == ApprovalPending
}

// NextOrderStatus 是一个纯函数：在审批通过后推进履约状态。
// 仅当订单已通过审批且仍停留在 AWAITING_APPROVAL 时返回 PAYMENT_PENDING，
// 其余情况原样返回当前状态。
func NextOrderStatus(o *Order) OrderStatus {
	if o.ApprovalStatus == ApprovalApproved && o.OrderStatus == StatusAwaitingApproval {
		return StatusPaymentPending
	}
	return o.OrderStatus
}

// IsPayable 是"该订单现在能否发起支付"的唯一判定入口。
// 所有消费方（接口层、支付闸门、视图投影）都必须调用它，而不是自行推导。
func IsPayable(o *Order) bool {
	if o.ApprovalStatus != ApprovalApproved {
		return false
	}
	return o.OrderStatus == StatusAwaitingApproval || o.OrderStatus == StatusPaymentPending
}

// AuthorizePayment 是支付闸门的纯判定核心：
// 订单可支付时返回 nil，否则返回携带具体原因的 *GateError。
func AuthorizePayment(o *Order) error {
	if IsPayable(o) {
		return nil
	}
	switch {
	case o.ApprovalStatus == ApprovalPending:
		return &GateError{Reason: GateReasonNotYetApproved, OrderID: o.ID}
	case o.ApprovalStatus == ApprovalRejected:
		return &GateError{Reason: GateReasonRejected, OrderID: o.ID}
	default:
		// 已通过审批但履约状态越过了 PAYMENT_PENDING，说明这笔钱已经收过了
		return &GateError{Reason: GateReasonAlreadyPaid, OrderID: o.ID}
	}
}

// DisplayStatus 把 {ApprovalStatus, OrderStatus} 投影成一个面向用户的状态标签。
// UI 层只允许展示这里算出来的结果，禁止各自用字符串拼接推导。
func DisplayStatus(o *Order) string {
	switch o.ApprovalStatus {
	case ApprovalPending:
		return "等待审批"
	case ApprovalRejected:
		return "已拒绝"
	}
	switch o.OrderStatus {
	case StatusAwaitingApproval, StatusPaymentPending:
		return "待支付"
	case StatusProcessing:
		return "处理中"
	case StatusShipped:
		return "已发货"
	case StatusDelivered:
		return "已完成"
	case StatusCancelled:
		return "已取消"
	}
	return "未知状态"
}
