package domain

import (
	"errors"
	"testing"
	"time"
)

func TestIsPayable(t *testing.T) {
	t.Parallel()

	approvalStatuses := []ApprovalStatus{ApprovalPending, ApprovalApproved, ApprovalRejected}
	orderStatuses := []OrderStatus{
		StatusAwaitingApproval, StatusPaymentPending, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled,
	}

	for _, approval := range approvalStatuses {
		for _, status := range orderStatuses {
			order := &Order{ID: "o-1", ApprovalStatus: approval, OrderStatus: status}
			want := approval == ApprovalApproved &&
				(status == StatusAwaitingApproval || status == StatusPaymentPending)
			if got := IsPayable(order); got != want {
				t.Errorf("IsPayable(%s, %s) = %v, want %v", approval, status, got, want)
			}
		}
	}
}

func TestIsPayable_FalseAfterPaymentRecorded(t *testing.T) {
	t.Parallel()

	order := &Order{
		ID:             "o-1",
		ApprovalStatus: ApprovalApproved,
		OrderStatus:    StatusPaymentPending,
	}
	if !IsPayable(order) {
		t.Fatalf("expected approved payment_pending order to be payable")
	}

	if err := order.RecordPayment("card", "txn-1", time.Now()); err != nil {
		t.Fatalf("expected payment to be recorded, got %v", err)
	}
	if IsPayable(order) {
		t.Fatalf("expected paid order to no longer be payable")
	}
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		approval ApprovalStatus
		want     bool
	}{
		{ApprovalPending, true},
		{ApprovalApproved, false},
		{ApprovalRejected, false},
	}
	for _, tc := range cases {
		order := &Order{ApprovalStatus: tc.approval}
		if got := CanTransition(order); got != tc.want {
			t.Errorf("CanTransition(%s) = %v, want %v", tc.approval, got, tc.want)
		}
	}
}

func TestNextOrderStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		approval ApprovalStatus
		status   OrderStatus
		want     OrderStatus
	}{
		{"approved order advances to payment pending", ApprovalApproved, StatusAwaitingApproval, StatusPaymentPending},
		{"pending order stays put", ApprovalPending, StatusAwaitingApproval, StatusAwaitingApproval},
		{"rejected order stays put", ApprovalRejected, StatusAwaitingApproval, StatusAwaitingApproval},
		{"already advanced order is unchanged", ApprovalApproved, StatusProcessing, StatusProcessing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := &Order{ApprovalStatus: tc.approval, OrderStatus: tc.status}
			if got := NextOrderStatus(order); got != tc.want {
				t.Fatalf("NextOrderStatus = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestAuthorizePayment_Reasons(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		approval ApprovalStatus
		status   OrderStatus
		want     GateReason
	}{
		{"pending order", ApprovalPending, StatusAwaitingApproval, GateReasonNotYetApproved},
		{"rejected order", ApprovalRejected, StatusAwaitingApproval, GateReasonRejected},
		{"already paid order", ApprovalApproved, StatusProcessing, GateReasonAlreadyPaid},
		{"shipped order", ApprovalApproved, StatusShipped, GateReasonAlreadyPaid},
		{"cancelled order", ApprovalApproved, StatusCancelled, GateReasonAlreadyPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := &Order{ID: "o-1", ApprovalStatus: tc.approval, OrderStatus: tc.status}
			err := AuthorizePayment(order)
			var gateErr *GateError
			if !errors.As(err, &gateErr) {
				t.Fatalf("expected GateError, got %v", err)
			}
			if gateErr.Reason != tc.want {
				t.Fatalf("expected reason %s, got %s", tc.want, gateErr.Reason)
			}
		})
	}

	t.Run("payable order is authorized", func(t *testing.T) {
		order := &Order{ID: "o-1", ApprovalStatus: ApprovalApproved, OrderStatus: StatusPaymentPending}
		if err := AuthorizePayment(order); err != nil {
			t.Fatalf("expected authorization, got %v", err)
		}
	})
}

func TestAuthorizePayment_Idempotent(t *testing.T) {
	t.Parallel()

	order := &Order{ID: "o-1", ApprovalStatus: ApprovalRejected, OrderStatus: StatusAwaitingApproval}

	first := AuthorizePayment(order)
	second := AuthorizePayment(order)

	var firstErr, secondErr *GateError
	if !errors.As(first, &firstErr) || !errors.As(second, &secondErr) {
		t.Fatalf("expected GateError from both calls, got %v and %v", first, second)
	}
	if firstErr.Reason != secondErr.Reason {
		t.Fatalf("expected identical results for unchanged snapshot, got %s and %s", firstErr.Reason, secondErr.Reason)
	}
}

func TestDisplayStatus_IsPureProjection(t *testing.T) {
	t.Parallel()

	pending := &Order{ApprovalStatus: ApprovalPending, OrderStatus: StatusAwaitingApproval}
	rejected := &Order{ApprovalStatus: ApprovalRejected, OrderStatus: StatusAwaitingApproval}
	payable := &Order{ApprovalStatus: ApprovalApproved, OrderStatus: StatusPaymentPending}

	if DisplayStatus(pending) == DisplayStatus(rejected) {
		t.Fatalf("pending and rejected must render differently")
	}
	if DisplayStatus(payable) == DisplayStatus(pending) {
		t.Fatalf("payable and pending must render differently")
	}
}
