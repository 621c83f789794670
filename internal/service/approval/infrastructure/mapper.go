package infrastructure

import (
	"database/sql"

	"orderflow/internal/service/approval/domain"
)

// ToDomainOrder 将数据库模型转换为领域模型
func ToDomainOrder(model *OrderModel) *domain.Order {
	if model == nil {
		return nil
	}
	items := make([]domain.OrderItem, 0, len(model.Items))
	for _, item := range model.Items {
		items = append(items, domain.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	order := &domain.Order{
		ID:             model.ID,
		OwnerID:        model.OwnerID,
		Items:          items,
		Subtotal:       model.Subtotal,
		TaxAmount:      model.TaxAmount,
		Total:          model.Total,
		ApprovalStatus: domain.ApprovalStatus(model.ApprovalStatus),
		OrderStatus:    domain.OrderStatus(model.OrderStatus),
		Version:        model.Version,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
	if model.DecidedBy.Valid {
		order.Decision = &domain.AdminDecision{
			DecidedBy: model.DecidedBy.String,
			DecidedAt: model.DecidedAt.Time,
			Remarks:   model.DecisionRemarks.String,
		}
	}
	if model.ProviderTxnID.Valid {
		order.Payment = &domain.PaymentRecord{
			Method:        model.PaymentMethod.String,
			ProviderTxnID: model.ProviderTxnID.String,
			ConfirmedAt:   model.PaidAt.Time,
		}
	}
	return order
}

// FromDomainOrder 将领域模型转换为数据库模型（用于插入）
func FromDomainOrder(order *domain.Order) *OrderModel {
	if order == nil {
		return nil
	}
	items := make([]OrderItemModel, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemModel{
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	model := &OrderModel{
		ID:             order.ID,
		OwnerID:        order.OwnerID,
		Subtotal:       order.Subtotal,
		TaxAmount:      order.TaxAmount,
		Total:          order.Total,
		ApprovalStatus: string(order.ApprovalStatus),
		OrderStatus:    string(order.OrderStatus),
		Version:        order.Version,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
		Items:          items,
	}
	if order.Decision != nil {
		model.DecidedBy = sql.NullString{String: order.Decision.DecidedBy, Valid: true}
		model.DecidedAt = sql.NullTime{Time: order.Decision.DecidedAt, Valid: true}
		model.DecisionRemarks = sql.NullString{String: order.Decision.Remarks, Valid: true}
	}
	if order.Payment != nil {
		model.PaymentMethod = sql.NullString{String: order.Payment.Method, Valid: true}
		model.ProviderTxnID = sql.NullString{String: order.Payment.ProviderTxnID, Valid: true}
		model.PaidAt = sql.NullTime{Time: order.Payment.ConfirmedAt, Valid: true}
	}
	return model
}
