// internal/service/approval/application/gate.go
package application

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"orderflow/internal/pkg/clock"
	"orderflow/internal/pkg/logger"
	"orderflow/internal/service/approval/domain"
	"orderflow/internal/service/approval/port"
)

// PaymentGate 是支付收款前的守门人：本身不做任何状态变更，
// 只回答"这笔支付现在允许吗"，并在服务商确认后负责把支付记录原子落盘。
type PaymentGate struct {
	orderRepo domain.OrderRepository
	locker    port.OrderLocker
	clock     clock.Clock
	tracer    trace.Tracer
	metrics   *WorkflowMetrics
}

// NewPaymentGate 创建支付闸门。
func NewPaymentGate(orderRepo domain.OrderRepository, locker port.OrderLocker,
	clk clock.Clock, tracer trace.Tracer, metrics *WorkflowMetrics) *PaymentGate {
	return &PaymentGate{orderRepo: orderRepo, locker: locker, clock: clk, tracer: tracer, metrics: metrics}
}

// AuthorizePaymentAttempt 纯判定：对同一订单快照的结果是幂等的。
// 放行返回 nil；拦下返回携带原因码的 *domain.GateError。
func (g *PaymentGate) AuthorizePaymentAttempt(order *domain.Order) error {
	if err := domain.AuthorizePayment(order); err != nil {
		var gateErr *domain.GateError
		if errors.As(err, &gateErr) {
			g.metrics.ObserveGateDenial(gateErr.Reason)
		}
		return err
	}
	return nil
}

// AuthorizePaymentAttemptByID 按 ID 装载订单后执行判定，供接口层在
// 调用支付服务商之前使用。
func (g *PaymentGate) AuthorizePaymentAttemptByID(ctx context.Context, orderID string) error {
	ctx, span := g.tracer.Start(ctx, "gate.AuthorizePaymentAttempt")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	order, err := g.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := g.AuthorizePaymentAttempt(order); err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Warn().Err(err).Str("order_id", orderID).Msg("payment attempt denied by gate")
		return err
	}
	span.AddEvent("Payment attempt authorized.")
	return nil
}

// ConfirmPayment 在支付服务商确认成功后调用。
// 在订单锁内重新过一遍闸门再写入支付记录：同一把锁同时护住裁决、取消
// 和支付确认，webhook 重放或并发取消只会有一个赢家。
func (g *PaymentGate) ConfirmPayment(ctx context.Context, req *ConfirmPaymentRequest) (*OrderView, error) {
	ctx, span := g.tracer.Start(ctx, "gate.ConfirmPayment")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", req.OrderID),
		attribute.String("payment.method", req.Method),
	)

	var paid *domain.Order
	err := g.locker.WithLock(ctx, req.OrderID, func(ctx context.Context) error {
		order, err := g.orderRepo.FindByID(ctx, req.OrderID)
		if err != nil {
			return err
		}
		expected := order.Version

		// 确认后的二次判定：支付期间订单可能已被取消或已收款
		if err := order.RecordPayment(req.Method, req.ProviderTxnID, g.clock.Now()); err != nil {
			var gateErr *domain.GateError
			if errors.As(err, &gateErr) {
				g.metrics.ObserveGateDenial(gateErr.Reason)
			}
			return err
		}

		if err := g.orderRepo.UpdateWithVersion(ctx, order, expected); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				return fmt.Errorf("%w: order %s changed during payment confirmation", domain.ErrInvalidState, order.ID)
			}
			return err
		}
		paid = order
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment confirmation rejected")
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Str("order_id", paid.ID).
		Str("provider_txn_id", req.ProviderTxnID).
		Msg("payment recorded, order moved to PROCESSING")
	span.AddEvent("Payment record persisted.")
	return ToOrderView(paid), nil
}
