package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

var testNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newPendingOrder(t *testing.T) *Order {
	t.Helper()
	order, err := NewOrder("user-1", []OrderItem{
		{ProductID: "p-1", Quantity: 2, UnitPrice: 19.99},
		{ProductID: "p-2", Quantity: 1, UnitPrice: 5.50},
	}, 0.1)
	if err != nil {
		t.Fatalf("expected order to be created, got %v", err)
	}
	if err := order.Submit(testNow); err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}
	return order
}

func TestNewOrder(t *testing.T) {
	t.Parallel()

	t.Run("computes amounts and keeps the total invariant", func(t *testing.T) {
		order, err := NewOrder("user-1", []OrderItem{
			{ProductID: "p-1", Quantity: 3, UnitPrice: 10.00},
		}, 0.2)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if order.Subtotal != 30.00 {
			t.Fatalf("expected subtotal 30.00, got %v", order.Subtotal)
		}
		if order.TaxAmount != 6.00 {
			t.Fatalf("expected tax 6.00, got %v", order.TaxAmount)
		}
		if math.Abs(order.Total-(order.Subtotal+order.TaxAmount)) > 1e-9 {
			t.Fatalf("total invariant broken: %v != %v + %v", order.Total, order.Subtotal, order.TaxAmount)
		}
		if order.ApprovalStatus != ApprovalPending || order.OrderStatus != StatusAwaitingApproval {
			t.Fatalf("expected initial state, got %s/%s", order.ApprovalStatus, order.OrderStatus)
		}
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		cases := []struct {
			name    string
			ownerID string
			items   []OrderItem
			taxRate float64
		}{
			{"missing owner", "", []OrderItem{{ProductID: "p", Quantity: 1, UnitPrice: 1}}, 0},
			{"no items", "user-1", nil, 0},
			{"zero quantity", "user-1", []OrderItem{{ProductID: "p", Quantity: 0, UnitPrice: 1}}, 0},
			{"negative price", "user-1", []OrderItem{{ProductID: "p", Quantity: 1, UnitPrice: -1}}, 0},
			{"negative tax rate", "user-1", []OrderItem{{ProductID: "p", Quantity: 1, UnitPrice: 1}}, -0.1},
		}
		for _, tc := range cases {
			if _, err := NewOrder(tc.ownerID, tc.items, tc.taxRate); !errors.Is(err, ErrValidation) {
				t.Errorf("%s: expected ErrValidation, got %v", tc.name, err)
			}
		}
	})
}

func TestOrder_Submit(t *testing.T) {
	t.Parallel()

	order := newPendingOrder(t)
	if order.Version != 1 {
		t.Fatalf("expected version 1 after submit, got %d", order.Version)
	}
	if err := order.Submit(testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected second submit to fail with ErrInvalidState, got %v", err)
	}
}

func TestOrder_Approve(t *testing.T) {
	t.Parallel()

	t.Run("sets decision and advances fulfilment", func(t *testing.T) {
		order := newPendingOrder(t)
		if err := order.Approve("admin-1", "looks good", testNow); err != nil {
			t.Fatalf("expected approval to succeed, got %v", err)
		}
		if order.ApprovalStatus != ApprovalApproved {
			t.Fatalf("expected APPROVED, got %s", order.ApprovalStatus)
		}
		if order.OrderStatus != StatusPaymentPending {
			t.Fatalf("expected PAYMENT_PENDING, got %s", order.OrderStatus)
		}
		if order.Decision == nil || order.Decision.DecidedBy != "admin-1" || !order.Decision.DecidedAt.Equal(testNow) {
			t.Fatalf("expected decision record, got %+v", order.Decision)
		}
	})

	t.Run("approval remarks are optional", func(t *testing.T) {
		order := newPendingOrder(t)
		if err := order.Approve("admin-1", "  ", testNow); err != nil {
			t.Fatalf("expected approval without remarks to succeed, got %v", err)
		}
	})

	t.Run("is one-shot", func(t *testing.T) {
		order := newPendingOrder(t)
		if err := order.Approve("admin-1", "", testNow); err != nil {
			t.Fatalf("expected first approval to succeed, got %v", err)
		}
		if err := order.Approve("admin-2", "", testNow); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected second approval to fail with ErrInvalidState, got %v", err)
		}
		if err := order.Reject("admin-2", "changed my mind", testNow); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected rejection after approval to fail with ErrInvalidState, got %v", err)
		}
		// 已裁决优先于入参校验：备注为空也必须报状态错误而不是校验错误
		if err := order.Reject("admin-2", "", testNow); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected blank-remarks rejection after approval to fail with ErrInvalidState, got %v", err)
		}
	})

	t.Run("rejects diverged fulfilment state as data corruption", func(t *testing.T) {
		order := newPendingOrder(t)
		order.OrderStatus = StatusProcessing // 绕过状态机的脏数据
		if err := order.Approve("admin-1", "", testNow); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected diverged order to be rejected, got %v", err)
		}
	})
}

func TestOrder_Reject(t *testing.T) {
	t.Parallel()

	t.Run("keeps fulfilment status untouched", func(t *testing.T) {
		order := newPendingOrder(t)
		if err := order.Reject("admin-1", "out of stock", testNow); err != nil {
			t.Fatalf("expected rejection to succeed, got %v", err)
		}
		if order.ApprovalStatus != ApprovalRejected {
			t.Fatalf("expected REJECTED, got %s", order.ApprovalStatus)
		}
		if order.OrderStatus != StatusAwaitingApproval {
			t.Fatalf("expected AWAITING_APPROVAL, got %s", order.OrderStatus)
		}
	})

	t.Run("requires non-blank remarks", func(t *testing.T) {
		for _, remarks := range []string{"", "   ", "\t\n"} {
			order := newPendingOrder(t)
			if err := order.Reject("admin-1", remarks, testNow); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation for remarks %q, got %v", remarks, err)
			}
			if order.ApprovalStatus != ApprovalPending {
				t.Fatalf("failed rejection must leave order pending, got %s", order.ApprovalStatus)
			}
		}
	})
}

func TestOrder_RecordPayment(t *testing.T) {
	t.Parallel()

	t.Run("moves a payable order to processing", func(t *testing.T) {
		order := newPendingOrder(t)
		if err := order.Approve("admin-1", "", testNow); err != nil {
			t.Fatalf("approve: %v", err)
		}
		if err := order.RecordPayment("card", "txn-42", testNow); err != nil {
			t.Fatalf("expected payment to be recorded, got %v", err)
		}
		if order.OrderStatus != StatusProcessing {
			t.Fatalf("expected PROCESSING, got %s", order.OrderStatus)
		}
		if order.Payment == nil || order.Payment.ProviderTxnID != "txn-42" {
			t.Fatalf("expected payment record, got %+v", order.Payment)
		}
	})

	t.Run("double payment is blocked", func(t *testing.T) {
		order := newPendingOrder(t)
		if err := order.Approve("admin-1", "", testNow); err != nil {
			t.Fatalf("approve: %v", err)
		}
		if err := order.RecordPayment("card", "txn-1", testNow); err != nil {
			t.Fatalf("first payment: %v", err)
		}
		err := order.RecordPayment("card", "txn-2", testNow)
		var gateErr *GateError
		if !errors.As(err, &gateErr) || gateErr.Reason != GateReasonAlreadyPaid {
			t.Fatalf("expected ALREADY_PAID gate error, got %v", err)
		}
	})

	t.Run("unapproved order cannot be paid", func(t *testing.T) {
		order := newPendingOrder(t)
		err := order.RecordPayment("card", "txn-1", testNow)
		var gateErr *GateError
		if !errors.As(err, &gateErr) || gateErr.Reason != GateReasonNotYetApproved {
			t.Fatalf("expected NOT_YET_APPROVED gate error, got %v", err)
		}
	})
}

func TestOrder_Cancel(t *testing.T) {
	t.Parallel()

	t.Run("pending order can be cancelled", func(t *testing.T) {
		order := newPendingOrder(t)
		if err := order.Cancel(testNow); err != nil {
			t.Fatalf("expected cancel to succeed, got %v", err)
		}
		if order.OrderStatus != StatusCancelled {
			t.Fatalf("expected CANCELLED, got %s", order.OrderStatus)
		}
	})

	t.Run("rejected order never progresses", func(t *testing.T) {
		order := newPendingOrder(t)
		if err := order.Reject("admin-1", "fraud suspicion", testNow); err != nil {
			t.Fatalf("reject: %v", err)
		}
		if err := order.Cancel(testNow); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected cancel on rejected order to fail, got %v", err)
		}
		if order.OrderStatus != StatusAwaitingApproval {
			t.Fatalf("rejected order must stay AWAITING_APPROVAL, got %s", order.OrderStatus)
		}
	})

	t.Run("terminal statuses cannot be cancelled", func(t *testing.T) {
		for _, status := range []OrderStatus{StatusDelivered, StatusCancelled} {
			order := newPendingOrder(t)
			order.ApprovalStatus = ApprovalApproved
			order.OrderStatus = status
			if err := order.Cancel(testNow); !errors.Is(err, ErrInvalidState) {
				t.Errorf("expected cancel on %s to fail, got %v", status, err)
			}
		}
	})
}
