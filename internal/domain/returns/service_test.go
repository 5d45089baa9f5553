// internal/domain/returns/service_test.go
package returns

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusDraft, StatusApproved, true},
		{StatusDraft, StatusCancelled, true},
		{StatusApproved, StatusCancelled, false},
		{StatusApproved, StatusDraft, false},
		{StatusCancelled, StatusApproved, false},
	}

	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestRefundForQuantity(t *testing.T) {
	cases := []struct {
		name      string
		lineTotal string
		soldQty   int
		returnQty int
		want      string
	}{
		{"full return refunds line total", "157.50", 20, 20, "157.50"},
		{"half return", "100.00", 20, 10, "50.00"},
		{"single unit of odd total", "100.00", 3, 1, "33.33"},
		{"two units of odd total", "100.00", 3, 2, "66.67"},
		{"zero return", "100.00", 20, 0, "0"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := refundForQuantity(dec(c.lineTotal), c.soldQty, c.returnQty)
			if !got.Equal(dec(c.want)) {
				t.Errorf("refundForQuantity(%s, %d, %d) = %s, want %s",
					c.lineTotal, c.soldQty, c.returnQty, got, c.want)
			}
		})
	}
}

func TestReturnPredicates(t *testing.T) {
	draft := &SaleReturn{Status: StatusDraft}
	approved := &SaleReturn{Status: StatusApproved}
	cancelled := &SaleReturn{Status: StatusCancelled}

	if !draft.CanBeApproved() || approved.CanBeApproved() || cancelled.CanBeApproved() {
		t.Error("only DRAFT returns can be approved")
	}
	if !draft.CanBeCancelled() || approved.CanBeCancelled() || cancelled.CanBeCancelled() {
		t.Error("only DRAFT returns can be cancelled")
	}
}
