// internal/domain/procurement/service_test.go
package procurement

import (
	"testing"
)

func TestDeriveReceiptStatus(t *testing.T) {
	cases := []struct {
		name  string
		items []GoodsReceiptItem
		want  ReceiptStatus
	}{
		{
			name: "nothing rejected",
			items: []GoodsReceiptItem{
				{QuantityReceived: 40, QuantityRejected: 0},
				{QuantityReceived: 10, QuantityRejected: 0},
			},
			want: ReceiptStatusReceived,
		},
		{
			name: "partially rejected",
			items: []GoodsReceiptItem{
				{QuantityReceived: 40, QuantityRejected: 5},
				{QuantityReceived: 10, QuantityRejected: 0},
			},
			want: ReceiptStatusPartial,
		},
		{
			name: "one line fully rejected",
			items: []GoodsReceiptItem{
				{QuantityReceived: 40, QuantityRejected: 40},
				{QuantityReceived: 10, QuantityRejected: 0},
			},
			want: ReceiptStatusPartial,
		},
		{
			name: "everything rejected",
			items: []GoodsReceiptItem{
				{QuantityReceived: 40, QuantityRejected: 40},
				{QuantityReceived: 10, QuantityRejected: 10},
			},
			want: ReceiptStatusRejected,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := deriveReceiptStatus(c.items); got != c.want {
				t.Errorf("deriveReceiptStatus = %s, want %s", got, c.want)
			}
		})
	}
}

func TestAcceptedQuantity(t *testing.T) {
	item := GoodsReceiptItem{QuantityReceived: 50, QuantityRejected: 8}
	if got := item.AcceptedQuantity(); got != 42 {
		t.Errorf("AcceptedQuantity = %d, want 42", got)
	}
}

func TestRollupStatusAcrossReceipts(t *testing.T) {
	items := []PurchaseOrderItem{
		{ProductID: 1, OrderedQty: 100},
	}

	// First receipt covers 40 of 100
	status, changed := rollupStatus(items, map[uint]int{1: 40})
	if !changed || status != POStatusPartial {
		t.Fatalf("after 40/100: status = %s changed = %v, want PARTIAL", status, changed)
	}

	// Second receipt brings the cumulative total to 100
	status, changed = rollupStatus(items, map[uint]int{1: 100})
	if !changed || status != POStatusReceived {
		t.Fatalf("after 100/100: status = %s changed = %v, want RECEIVED", status, changed)
	}
}

func TestRollupStatusMultipleLines(t *testing.T) {
	items := []PurchaseOrderItem{
		{ProductID: 1, OrderedQty: 100},
		{ProductID: 2, OrderedQty: 50},
	}

	// One line covered, the other untouched
	status, changed := rollupStatus(items, map[uint]int{1: 100})
	if !changed || status != POStatusPartial {
		t.Errorf("one of two lines covered: status = %s, want PARTIAL", status)
	}

	// Both lines covered, one over-delivered
	status, changed = rollupStatus(items, map[uint]int{1: 120, 2: 50})
	if !changed || status != POStatusReceived {
		t.Errorf("all lines covered: status = %s, want RECEIVED", status)
	}
}

func TestRollupStatusNothingAccepted(t *testing.T) {
	items := []PurchaseOrderItem{
		{ProductID: 1, OrderedQty: 100},
	}

	if _, changed := rollupStatus(items, map[uint]int{}); changed {
		t.Error("rollup with nothing accepted must leave the status unchanged")
	}
	if _, changed := rollupStatus(items, map[uint]int{1: 0}); changed {
		t.Error("rollup with zero accepted must leave the status unchanged")
	}
}

func TestPOStatusTransitions(t *testing.T) {
	cases := []struct {
		from POStatus
		to   POStatus
		want bool
	}{
		{POStatusDraft, POStatusApproved, true},
		{POStatusDraft, POStatusCancelled, true},
		{POStatusDraft, POStatusSent, false},
		{POStatusApproved, POStatusSent, true},
		{POStatusApproved, POStatusPartial, true},
		{POStatusSent, POStatusReceived, true},
		{POStatusPartial, POStatusReceived, true},
		{POStatusPartial, POStatusCancelled, false},
		{POStatusReceived, POStatusPartial, false},
		{POStatusCancelled, POStatusApproved, false},
	}

	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestCanReceiveAgainst(t *testing.T) {
	for _, status := range []POStatus{POStatusApproved, POStatusSent, POStatusPartial} {
		po := &PurchaseOrder{Status: status}
		if !po.CanReceiveAgainst() {
			t.Errorf("receiving against a %s order should be allowed", status)
		}
	}
	for _, status := range []POStatus{POStatusDraft, POStatusReceived, POStatusCancelled} {
		po := &PurchaseOrder{Status: status}
		if po.CanReceiveAgainst() {
			t.Errorf("receiving against a %s order should be rejected", status)
		}
	}
}
