// internal/service/approval/application/service.go
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"orderflow/internal/pkg/clock"
	"orderflow/internal/pkg/logger"
	"orderflow/internal/service/approval/domain"
	"orderflow/internal/service/approval/port"
)

// defaultNotifyTimeout 单条通知投递的超时上限；超时即放弃，绝不阻塞业务返回
const defaultNotifyTimeout = 5 * time.Second

// ApprovalService 编排一次审批流转：校验前置条件、在订单锁内原子落盘、
// 旁路触发通知，最后返回更新后的订单视图。
type ApprovalService struct {
	orderRepo domain.OrderRepository
	notifier  port.NotificationProducer
	locker    port.OrderLocker
	clock     clock.Clock
	tracer    trace.Tracer
	metrics   *WorkflowMetrics

	notifyTimeout time.Duration
}

// NewApprovalService 创建审批服务。metrics 允许为 nil（例如在测试中）。
func NewApprovalService(orderRepo domain.OrderRepository, notifier port.NotificationProducer,
	locker port.OrderLocker, clk clock.Clock, tracer trace.Tracer, metrics *WorkflowMetrics) *ApprovalService {
	return &ApprovalService{
		orderRepo:     orderRepo,
		notifier:      notifier,
		locker:        locker,
		clock:         clk,
		tracer:        tracer,
		metrics:       metrics,
		notifyTimeout: defaultNotifyTimeout,
	}
}

// SubmitForApproval 把一笔刚创建的订单登记进审批流。
// 由外部结账流程在订单创建时调用一次；重复提交返回 ErrInvalidState。
func (s *ApprovalService) SubmitForApproval(ctx context.Context, order *domain.Order) (*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "approval.SubmitForApproval")
	defer span.End()

	if order == nil {
		return nil, fmt.Errorf("%w: order is required", domain.ErrValidation)
	}
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.String("order.owner_id", order.OwnerID))

	if err := order.Submit(s.clock.Now()); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist submitted order")
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("owner_id", order.OwnerID).
		Float64("total", order.Total).
		Msg("order submitted for approval")
	span.AddEvent("Order persisted in PENDING/AWAITING_APPROVAL state.")

	s.dispatchNotification(ctx, order, s.notifier.NotifyOrderSubmitted, domain.NotificationOrderSubmitted)
	return ToOrderView(order), nil
}

// Decide 执行一次管理员裁决。整个读-改-写在订单锁内完成，
// 并以版本号 CAS 兜底：并发的第二次裁决一定会观察到 ErrInvalidState。
func (s *ApprovalService) Decide(ctx context.Context, req *DecideRequest) (*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "approval.Decide")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", req.OrderID),
		attribute.String("admin.id", req.AdminID),
		attribute.String("decision", string(req.Decision)),
	)

	var decided *domain.Order
	err := s.locker.WithLock(ctx, req.OrderID, func(ctx context.Context) error {
		order, err := s.orderRepo.FindByID(ctx, req.OrderID)
		if err != nil {
			return err
		}
		expected := order.Version
		now := s.clock.Now()

		switch req.Decision {
		case DecisionApprove:
			if err := order.Approve(req.AdminID, req.Remarks, now); err != nil {
				return err
			}
		case DecisionReject:
			if err := order.Reject(req.AdminID, req.Remarks, now); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unknown decision %q", domain.ErrValidation, req.Decision)
		}

		if err := s.orderRepo.UpdateWithVersion(ctx, order, expected); err != nil {
			// CAS 落空说明锁外有并发写抢先落盘，对外统一表现为"已裁决"
			if errors.Is(err, domain.ErrVersionConflict) {
				return fmt.Errorf("%w: order %s already decided", domain.ErrInvalidState, order.ID)
			}
			return err
		}
		decided = order
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decide failed")
		return nil, err
	}

	s.metrics.ObserveDecision(req.Decision)
	logger.Ctx(ctx).Info().
		Str("order_id", decided.ID).
		Str("admin_id", req.AdminID).
		Str("decision", string(req.Decision)).
		Str("order_status", string(decided.OrderStatus)).
		Msg("admin decision persisted")
	span.AddEvent("Decision persisted atomically.")

	if decided.ApprovalStatus == domain.ApprovalApproved {
		s.dispatchNotification(ctx, decided, s.notifier.NotifyApproved, domain.NotificationOrderApproved)
	} else {
		s.dispatchNotification(ctx, decided, s.notifier.NotifyRejected, domain.NotificationOrderRejected)
	}
	return ToOrderView(decided), nil
}

// CancelOrder 取消一笔尚未送达的订单。与裁决、支付确认共用同一把订单锁，
// 保证取消和支付回调不会同时落盘。
func (s *ApprovalService) CancelOrder(ctx context.Context, orderID string) (*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "approval.CancelOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	var cancelled *domain.Order
	err := s.locker.WithLock(ctx, orderID, func(ctx context.Context) error {
		order, err := s.orderRepo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		expected := order.Version
		if err := order.Cancel(s.clock.Now()); err != nil {
			return err
		}
		if err := s.orderRepo.UpdateWithVersion(ctx, order, expected); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				return fmt.Errorf("%w: order %s changed concurrently", domain.ErrInvalidState, order.ID)
			}
			return err
		}
		cancelled = order
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Ctx(ctx).Info().Str("order_id", orderID).Msg("order cancelled")
	return ToOrderView(cancelled), nil
}

// GetOrder 只读查询：返回订单视图（含 Payable 与展示状态投影）。
func (s *ApprovalService) GetOrder(ctx context.Context, orderID string) (*OrderView, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToOrderView(order), nil
}

// ListOwnerOrders 返回某个用户名下全部订单的视图。
func (s *ApprovalService) ListOwnerOrders(ctx context.Context, ownerID string) ([]*OrderView, error) {
	orders, err := s.orderRepo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	views := make([]*OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, ToOrderView(o))
	}
	return views, nil
}

// IsPayable 只读查询："这笔订单现在能不能付钱"，供 UI 展示使用。
func (s *ApprovalService) IsPayable(ctx context.Context, orderID string) (bool, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return false, err
	}
	return domain.IsPayable(order), nil
}

// dispatchNotification 旁路触发一条通知。
// 剥离调用方的超时、只保留 Span 上下文用于链路关联，然后在独立 goroutine
// 里以有界超时投递；失败只记日志和指标，不影响已落盘的业务裁决。
func (s *ApprovalService) dispatchNotification(ctx context.Context, order *domain.Order,
	notify func(context.Context, *domain.Order) error, kind domain.NotificationKind) {
	detached := trace.ContextWithRemoteSpanContext(context.Background(), trace.SpanContextFromContext(ctx))
	go func() {
		nctx, cancel := context.WithTimeout(detached, s.notifyTimeout)
		defer cancel()
		if err := notify(nctx, order); err != nil {
			s.metrics.ObserveNotificationFailure()
			logger.Ctx(nctx).Warn().
				Err(err).
				Str("order_id", order.ID).
				Str("kind", string(kind)).
				Msg("best-effort notification failed")
		}
	}()
}
