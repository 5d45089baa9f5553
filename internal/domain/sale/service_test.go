// internal/domain/sale/service_test.go
package sale

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

func TestRequiresApprovalBoundary(t *testing.T) {
	threshold := dec("10")

	cases := []struct {
		name     string
		total    string
		discount string
		want     bool
	}{
		{"no discount", "1000.00", "0", false},
		{"small discount", "1000.00", "50.00", false},
		{"exactly at threshold", "1000.00", "100.00", false},
		{"just above threshold", "1000.00", "100.10", true},
		{"well above threshold", "1000.00", "250.00", true},
		{"fractional boundary", "999.00", "99.90", false},
		{"fractional above", "999.00", "99.91", true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := requiresApproval(dec(c.total), dec(c.discount), threshold)
			if got != c.want {
				t.Errorf("requiresApproval(%s, %s) = %v, want %v", c.total, c.discount, got, c.want)
			}
		})
	}
}

func TestRequiresApprovalZeroTotal(t *testing.T) {
	if requiresApproval(decimal.Zero, dec("5.00"), dec("10")) {
		t.Error("zero-total sale must not require approval")
	}
}

func TestProratePreservesSum(t *testing.T) {
	cases := []struct {
		name    string
		amount  string
		weights []int
	}{
		{"even split", "10.00", []int{5, 5}},
		{"uneven split", "10.00", []int{3, 7}},
		{"indivisible", "10.00", []int{1, 1, 1}},
		{"single weight", "99.99", []int{20}},
		{"skewed", "0.05", []int{99, 1}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			amount := dec(c.amount)
			shares := prorate(amount, c.weights)
			if len(shares) != len(c.weights) {
				t.Fatalf("got %d shares for %d weights", len(shares), len(c.weights))
			}
			sum := decimal.Zero
			for _, share := range shares {
				sum = sum.Add(share)
			}
			if !sum.Equal(amount) {
				t.Errorf("shares sum to %s, want %s", sum, amount)
			}
		})
	}
}

func TestProrateWeighting(t *testing.T) {
	shares := prorate(dec("10.00"), []int{3, 7})
	if !shares[0].Equal(dec("3.00")) {
		t.Errorf("first share = %s, want 3.00", shares[0])
	}
	if !shares[1].Equal(dec("7.00")) {
		t.Errorf("second share = %s, want 7.00", shares[1])
	}
}

func TestProrateZeroAmount(t *testing.T) {
	shares := prorate(decimal.Zero, []int{2, 3})
	for i, share := range shares {
		if !share.IsZero() {
			t.Errorf("share %d = %s, want 0", i, share)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPendingApproval, StatusCompleted, true},
		{StatusPendingApproval, StatusCancelled, true},
		{StatusCompleted, StatusCancelled, true},
		{StatusCompleted, StatusPendingApproval, false},
		{StatusCompleted, StatusCompleted, false},
		{StatusCancelled, StatusCompleted, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusCancelled, StatusPendingApproval, false},
	}

	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestSalePredicates(t *testing.T) {
	pending := &Sale{Status: StatusPendingApproval}
	completed := &Sale{Status: StatusCompleted}
	cancelled := &Sale{Status: StatusCancelled}

	if !pending.CanBeApproved() || completed.CanBeApproved() || cancelled.CanBeApproved() {
		t.Error("only PENDING_APPROVAL sales can be approved")
	}
	if !pending.CanBeCancelled() || !completed.CanBeCancelled() {
		t.Error("pending and completed sales can be cancelled")
	}
	if cancelled.CanBeCancelled() {
		t.Error("cancelled sales cannot be cancelled again")
	}
}
