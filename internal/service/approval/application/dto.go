package application

import (
	"time"

	"orderflow/internal/service/approval/domain"
)

// Decision 是管理员裁决动作的取值
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// DecideRequest 是一次管理员裁决的入参
type DecideRequest struct {
	OrderID  string   `json:"orderId"`
	AdminID  string   `json:"adminId"`
	Decision Decision `json:"decision"`
	Remarks  string   `json:"remarks,omitempty"`
}

// ConfirmPaymentRequest 是支付服务商确认成功后的回调入参
type ConfirmPaymentRequest struct {
	OrderID       string `json:"orderId"`
	Method        string `json:"method"`
	ProviderTxnID string `json:"providerTxnId"`
}

// ItemView 行项目视图
type ItemView struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// DecisionView 裁决记录视图
type DecisionView struct {
	DecidedBy string    `json:"decidedBy"`
	DecidedAt time.Time `json:"decidedAt"`
	Remarks   string    `json:"remarks,omitempty"`
}

// PaymentView 支付记录视图
type PaymentView struct {
	Method        string    `json:"method"`
	ProviderTxnID string    `json:"providerTxnId"`
	ConfirmedAt   time.Time `json:"confirmedAt"`
}

// OrderView 是对外返回的订单快照。
// Payable 与 DisplayStatus 都是从状态机投影出来的只读字段，调用方不得自行推导。
type OrderView struct {
	ID             string        `json:"id"`
	OwnerID        string        `json:"ownerId"`
	Items          []ItemView    `json:"items"`
	Subtotal       float64       `json:"subtotal"`
	TaxAmount      float64       `json:"taxAmount"`
	Total          float64       `json:"total"`
	ApprovalStatus string        `json:"approvalStatus"`
	OrderStatus    string        `json:"orderStatus"`
	DisplayStatus  string        `json:"displayStatus"`
	Payable        bool          `json:"payable"`
	Decision       *DecisionView `json:"decision,omitempty"`
	Payment        *PaymentView  `json:"payment,omitempty"`
	Version        int64         `json:"version"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// ToOrderView 把领域实体投影为视图对象
func ToOrderView(o *domain.Order) *OrderView {
	if o == nil {
		return nil
	}
	items := make([]ItemView, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, ItemView{ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	view := &OrderView{
		ID:             o.ID,
		OwnerID:        o.OwnerID,
		Items:          items,
		Subtotal:       o.Subtotal,
		TaxAmount:      o.TaxAmount,
		Total:          o.Total,
		ApprovalStatus: string(o.ApprovalStatus),
		OrderStatus:    string(o.OrderStatus),
		DisplayStatus:  domain.DisplayStatus(o),
		Payable:        domain.IsPayable(o),
		Version:        o.Version,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.Decision != nil {
		view.Decision = &DecisionView{DecidedBy: o.Decision.DecidedBy, DecidedAt: o.Decision.DecidedAt, Remarks: o.Decision.Remarks}
	}
	if o.Payment != nil {
		view.Payment = &PaymentView{Method: o.Payment.Method, ProviderTxnID: o.Payment.ProviderTxnID, ConfirmedAt: o.Payment.ConfirmedAt}
	}
	return view
}
