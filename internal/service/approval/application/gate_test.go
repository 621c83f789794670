package application

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"

	"orderflow/internal/pkg/clock"
	"orderflow/internal/service/approval/domain"
)

func newTestGate(t *testing.T) (*PaymentGate, *ApprovalService, *WorkflowMetrics) {
	t.Helper()
	repo := newFakeOrderRepo()
	locker := newMemoryLocker()
	clk := clock.NewFixed(testNow)
	tracer := otel.Tracer("test")
	metrics := NewWorkflowMetrics(prometheus.NewRegistry())

	svc := NewApprovalService(repo, newFakeNotifier(), locker, clk, tracer, metrics)
	gate := NewPaymentGate(repo, locker, clk, tracer, metrics)
	return gate, svc, metrics
}

func approveOrder(t *testing.T, svc *ApprovalService, orderID string) {
	t.Helper()
	if _, err := svc.Decide(context.Background(), &DecideRequest{
		OrderID: orderID, AdminID: "admin-1", Decision: DecisionApprove,
	}); err != nil {
		t.Fatalf("approve: %v", err)
	}
}

func TestPaymentGate_AuthorizePaymentAttemptByID(t *testing.T) {
	t.Parallel()

	t.Run("approved order is authorized", func(t *testing.T) {
		gate, svc, _ := newTestGate(t)
		order := newSubmittedOrder(t, svc)
		approveOrder(t, svc, order.ID)

		if err := gate.AuthorizePaymentAttemptByID(context.Background(), order.ID); err != nil {
			t.Fatalf("expected authorization, got %v", err)
		}
	})

	t.Run("pending order is denied with reason", func(t *testing.T) {
		gate, svc, metrics := newTestGate(t)
		order := newSubmittedOrder(t, svc)

		err := gate.AuthorizePaymentAttemptByID(context.Background(), order.ID)
		var gateErr *domain.GateError
		if !errors.As(err, &gateErr) || gateErr.Reason != domain.GateReasonNotYetApproved {
			t.Fatalf("expected NOT_YET_APPROVED gate error, got %v", err)
		}
		denials := testutil.ToFloat64(metrics.GateDenials.WithLabelValues(string(domain.GateReasonNotYetApproved)))
		if denials != 1 {
			t.Fatalf("expected 1 recorded denial, got %v", denials)
		}
	})

	t.Run("rejected order is denied with reason", func(t *testing.T) {
		gate, svc, _ := newTestGate(t)
		order := newSubmittedOrder(t, svc)
		if _, err := svc.Decide(context.Background(), &DecideRequest{
			OrderID: order.ID, AdminID: "admin-1", Decision: DecisionReject, Remarks: "no",
		}); err != nil {
			t.Fatalf("reject: %v", err)
		}

		err := gate.AuthorizePaymentAttemptByID(context.Background(), order.ID)
		var gateErr *domain.GateError
		if !errors.As(err, &gateErr) || gateErr.Reason != domain.GateReasonRejected {
			t.Fatalf("expected REJECTED gate error, got %v", err)
		}
	})

	t.Run("unknown order is not found", func(t *testing.T) {
		gate, _, _ := newTestGate(t)
		if err := gate.AuthorizePaymentAttemptByID(context.Background(), "missing"); !errors.Is(err, domain.ErrOrderNotFound) {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
	})

	t.Run("authorization is idempotent for an unchanged order", func(t *testing.T) {
		gate, svc, _ := newTestGate(t)
		order := newSubmittedOrder(t, svc)
		approveOrder(t, svc, order.ID)

		for i := 0; i < 3; i++ {
			if err := gate.AuthorizePaymentAttemptByID(context.Background(), order.ID); err != nil {
				t.Fatalf("attempt %d: expected authorization, got %v", i, err)
			}
		}
	})
}

func TestPaymentGate_ConfirmPayment(t *testing.T) {
	t.Parallel()

	t.Run("records payment and moves order to processing", func(t *testing.T) {
		gate, svc, _ := newTestGate(t)
		order := newSubmittedOrder(t, svc)
		approveOrder(t, svc, order.ID)

		view, err := gate.ConfirmPayment(context.Background(), &ConfirmPaymentRequest{
			OrderID: order.ID, Method: "card", ProviderTxnID: "txn-42",
		})
		if err != nil {
			t.Fatalf("expected confirmation to succeed, got %v", err)
		}
		if view.OrderStatus != string(domain.StatusProcessing) {
			t.Fatalf("expected PROCESSING, got %s", view.OrderStatus)
		}
		if view.Payment == nil || view.Payment.ProviderTxnID != "txn-42" {
			t.Fatalf("expected payment view, got %+v", view.Payment)
		}
		if view.Payable {
			t.Fatalf("paid order must no longer be payable")
		}
	})

	t.Run("replayed webhook is blocked as already paid", func(t *testing.T) {
		gate, svc, _ := newTestGate(t)
		order := newSubmittedOrder(t, svc)
		approveOrder(t, svc, order.ID)

		if _, err := gate.ConfirmPayment(context.Background(), &ConfirmPaymentRequest{
			OrderID: order.ID, Method: "card", ProviderTxnID: "txn-1",
		}); err != nil {
			t.Fatalf("first confirmation: %v", err)
		}

		_, err := gate.ConfirmPayment(context.Background(), &ConfirmPaymentRequest{
			OrderID: order.ID, Method: "card", ProviderTxnID: "txn-2",
		})
		var gateErr *domain.GateError
		if !errors.As(err, &gateErr) || gateErr.Reason != domain.GateReasonAlreadyPaid {
			t.Fatalf("expected ALREADY_PAID gate error, got %v", err)
		}

		stored, err := svc.GetOrder(context.Background(), order.ID)
		if err != nil {
			t.Fatalf("get order: %v", err)
		}
		if stored.Payment.ProviderTxnID != "txn-1" {
			t.Fatalf("replay must not overwrite the original payment, got %+v", stored.Payment)
		}
	})

	t.Run("confirmation on an unapproved order is denied", func(t *testing.T) {
		gate, svc, _ := newTestGate(t)
		order := newSubmittedOrder(t, svc)

		_, err := gate.ConfirmPayment(context.Background(), &ConfirmPaymentRequest{
			OrderID: order.ID, Method: "card", ProviderTxnID: "txn-1",
		})
		var gateErr *domain.GateError
		if !errors.As(err, &gateErr) || gateErr.Reason != domain.GateReasonNotYetApproved {
			t.Fatalf("expected NOT_YET_APPROVED gate error, got %v", err)
		}
	})

	t.Run("confirmation on a cancelled order is denied", func(t *testing.T) {
		gate, svc, _ := newTestGate(t)
		order := newSubmittedOrder(t, svc)
		approveOrder(t, svc, order.ID)
		if _, err := svc.CancelOrder(context.Background(), order.ID); err != nil {
			t.Fatalf("cancel: %v", err)
		}

		_, err := gate.ConfirmPayment(context.Background(), &ConfirmPaymentRequest{
			OrderID: order.ID, Method: "card", ProviderTxnID: "txn-1",
		})
		var gateErr *domain.GateError
		if !errors.As(err, &gateErr) {
			t.Fatalf("expected gate error for cancelled order, got %v", err)
		}
	})
}
