// internal/service/approval/domain/order.go
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderItem 是订单中的一个行项目，订单离开初始状态后不可再变更。
type OrderItem struct {
	ProductID string
	Quantity  int
	UnitPrice float64
}

// AdminDecision 是不可变的裁决记录：谁、何时、为什么通过或拒绝了这笔订单。
type AdminDecision struct {
	DecidedBy string
	DecidedAt time.Time
	Remarks   string
}

// PaymentRecord 在支付成功后写入，一旦存在即表示订单已收款。
type PaymentRecord struct {
	Method        string
	ProviderTxnID string
	ConfirmedAt   time.Time
}

// Order 是审批工作流的聚合根。
// 状态只能通过下面的业务方法流转，任何直接改字段的路径都是越权。
type Order struct {
	ID             string
	OwnerID        string
	Items          []OrderItem
	Subtotal       float64
	TaxAmount      float64
	Total          float64
	ApprovalStatus ApprovalStatus
	OrderStatus    OrderStatus
	Decision       *AdminDecision
	Payment        *PaymentRecord

	// Version 是乐观锁版本号：0 表示尚未提交入库，每次成功写入 +1。
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder 工厂函数：校验行项目并计算金额，生成一个处于初始状态的订单。
// 金额不变式 Total = Subtotal + TaxAmount 在这里建立，之后任何流转都不允许破坏它。
func NewOrder(ownerID string, items []OrderItem, taxRate float64) (*Order, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", ErrValidation)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", ErrValidation)
	}
	if taxRate < 0 {
		return nil, fmt.Errorf("%w: tax rate must not be negative", ErrValidation)
	}

	var subtotal float64
	for i, item := range items {
		if item.ProductID == "" {
			return nil, fmt.Errorf("%w: item %d has no product reference", ErrValidation, i)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %d quantity must be positive", ErrValidation, i)
		}
		if item.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: item %d unit price must not be negative", ErrValidation, i)
		}
		subtotal += float64(item.Quantity) * item.UnitPrice
	}

	subtotal = roundAmount(subtotal)
	tax := roundAmount(subtotal * taxRate)

	return &Order{
		ID:             uuid.New().String(),
		OwnerID:        ownerID,
		Items:          items,
		Subtotal:       subtotal,
		TaxAmount:      tax,
		Total:          roundAmount(subtotal + tax),
		ApprovalStatus: ApprovalPending,
		OrderStatus:    StatusAwaitingApproval,
	}, nil
}

// Submit 把刚创建的订单登记进审批流。只允许调用一次：
// 已经提交过（版本号不为 0 或状态已偏离初始值）的订单再次提交会失败。
func (o *Order) Submit(now time.Time) error {
	if o.Version != 0 || o.Decision != nil ||
		o.ApprovalStatus != ApprovalPending || o.OrderStatus != StatusAwaitingApproval {
		return fmt.Errorf("%w: order %s already submitted for approval", ErrInvalidState, o.ID)
	}
	o.Version = 1
	o.CreatedAt = now
	o.UpdatedAt = now
	return nil
}

// Approve 审批通过。裁决是一次性的，之后履约状态按 NextOrderStatus 推进。
// 备注对通过操作是可选的。
func (o *Order) Approve(adminID, remarks string, now time.Time) error {
	// 先判是否已裁决：对已裁决订单的任何再次裁决都是状态错误，入参校验靠后
	if !CanTransition(o) {
		return fmt.Errorf("%w: order %s already decided", ErrInvalidState, o.ID)
	}
	if adminID == "" {
		return fmt.Errorf("%w: admin id is required", ErrValidation)
	}
	// 待审批订单的履约状态必须还停在起点，偏离说明数据已被旁路改写
	if o.OrderStatus != StatusAwaitingApproval {
		return fmt.Errorf("%w: order %s has inconsistent status %s while pending approval",
			ErrInvalidState, o.ID, o.OrderStatus)
	}
	o.ApprovalStatus = ApprovalApproved
	o.Decision = &AdminDecision{DecidedBy: adminID, DecidedAt: now, Remarks: strings.TrimSpace(remarks)}
	o.OrderStatus = NextOrderStatus(o)
	o.UpdatedAt = now
	return nil
}

// Reject 审批拒绝。拒绝必须给出非空的备注，履约状态保持不动。
func (o *Order) Reject(adminID, remarks string, now time.Time) error {
	// 同 Approve：已裁决优先于入参校验
	if !CanTransition(o) {
		return fmt.Errorf("%w: order %s already decided", ErrInvalidState, o.ID)
	}
	if adminID == "" {
		return fmt.Errorf("%w: admin id is required", ErrValidation)
	}
	if strings.TrimSpace(remarks) == "" {
		return fmt.Errorf("%w: rejection remarks must not be empty", ErrValidation)
	}
	o.ApprovalStatus = ApprovalRejected
	o.Decision = &AdminDecision{DecidedBy: adminID, DecidedAt: now, Remarks: strings.TrimSpace(remarks)}
	o.UpdatedAt = now
	return nil
}

// RecordPayment 在支付服务商确认成功后写入支付记录并推进到处理中。
// 写入前会再次过一遍支付闸门，拦截并发场景下的二次收款。
func (o *Order) RecordPayment(method, providerTxnID string, now time.Time) error {
	if method == "" || providerTxnID == "" {
		return fmt.Errorf("%w: payment method and provider transaction id are required", ErrValidation)
	}
	if err := AuthorizePayment(o); err != nil {
		return err
	}
	o.Payment = &PaymentRecord{Method: method, ProviderTxnID: providerTxnID, ConfirmedAt: now}
	o.OrderStatus = StatusProcessing
	o.UpdatedAt = now
	return nil
}

// Cancel 取消订单。已送达、已取消的订单不能取消；
// 被拒绝的订单永远停留在 AWAITING_APPROVAL，同样不允许再流转。
func (o *Order) Cancel(now time.Time) error {
	if o.ApprovalStatus == ApprovalRejected {
		return fmt.Errorf("%w: rejected order %s cannot progress", ErrInvalidState, o.ID)
	}
	if o.OrderStatus == StatusDelivered || o.OrderStatus == StatusCancelled {
		return fmt.Errorf("%w: order %s is already in terminal status %s", ErrInvalidState, o.ID, o.OrderStatus)
	}
	o.OrderStatus = StatusCancelled
	o.UpdatedAt = now
	return nil
}

// roundAmount 金额统一保留两位小数，避免浮点累加误差破坏金额不变式
func roundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}
