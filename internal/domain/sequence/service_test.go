// internal/domain/sequence/service_test.go
package sequence

import (
	"testing"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		prefix string
		year   int
		value  int
		want   string
	}{
		{PrefixSale, 2026, 1, "SAL-2026-00001"},
		{PrefixSale, 2026, 42, "SAL-2026-00042"},
		{PrefixGoodsReceipt, 2025, 12345, "GRN-2025-12345"},
		{PrefixInvoice, 2026, 99999, "INV-2026-99999"},
		{PrefixSaleReturn, 2026, 7, "RET-2026-00007"},
		{PrefixPurchase, 2026, 120001, "PO-2026-120001"},
	}

	for _, c := range cases {
		got := Format(c.prefix, c.year, c.value)
		if got != c.want {
			t.Errorf("Format(%s, %d, %d) = %s, want %s", c.prefix, c.year, c.value, got, c.want)
		}
	}
}
