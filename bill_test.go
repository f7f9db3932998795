package lnpos

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSubtotalFiatOnlyIsExact(t *testing.T) {
	bill := NewBill(decimal.Zero)
	bill.Add("Coffee", FiatMoney(d("3.75")))
	bill.Add("Bagel", FiatMoney(d("2.25")))
	bill.Add("Tip jar", FiatMoney(d("0.10")))

	// Fiat-only carts have no rate dependency: the subtotal is the exact
	// arithmetic sum regardless of rate.
	for _, rate := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(50000)} {
		if got := bill.Subtotal(rate); !got.Equal(d("6.10")) {
			t.Errorf("Expected subtotal 6.10 at rate %s, got %s", rate, got)
		}
	}
}

func TestBillScenario(t *testing.T) {
	// Cart [5.00, 2.50] fiat, tax 8%, tip preset 15%.
	bill := NewBill(d("8"))
	bill.Add("Item A", FiatMoney(d("5.00")))
	bill.Add("Item B", FiatMoney(d("2.50")))
	bill.SetTipPercent(d("15"))

	rate := decimal.Zero
	if got := bill.Subtotal(rate); !got.Equal(d("7.50")) {
		t.Errorf("Expected subtotal 7.50, got %s", got)
	}
	if got := bill.Tax(rate); !got.Equal(d("0.60")) {
		t.Errorf("Expected tax 0.60, got %s", got)
	}
	if got := bill.Tip(rate); !got.Equal(d("1.125")) {
		t.Errorf("Expected tip 1.125, got %s", got)
	}
	if got := bill.Total(rate); !got.Equal(d("9.225")) {
		t.Errorf("Expected total 9.225, got %s", got)
	}
	if got := FormatFiat(bill.Total(rate)); got != "$9.23" {
		t.Errorf("Expected display total $9.23, got %s", got)
	}
}

func TestMixedCurrencySubtotal(t *testing.T) {
	rate := decimal.NewFromInt(50000)
	bill := NewBill(decimal.Zero)
	bill.Add("Fiat item", FiatMoney(d("10")))
	bill.Add("Sats item", SatsMoney(100_000)) // 0.001 BTC = 50 fiat

	if got := bill.Subtotal(rate); !got.Equal(d("60")) {
		t.Errorf("Expected subtotal 60, got %s", got)
	}
}

func TestNegativeTaxRateClamped(t *testing.T) {
	bill := NewBill(d("-5"))
	bill.Add("Item", FiatMoney(d("10")))
	if got := bill.Tax(decimal.Zero); !got.IsZero() {
		t.Errorf("Expected clamped tax 0, got %s", got)
	}
}

func TestTipSelectionIsMutuallyExclusive(t *testing.T) {
	bill := NewBill(decimal.Zero)
	bill.Add("Item", FiatMoney(d("100")))

	bill.SetTipAmount(d("7"))
	bill.SetTipPercent(d("10"))
	if got := bill.Tip(decimal.Zero); !got.Equal(d("10")) {
		t.Errorf("Expected preset to overwrite custom tip, got %s", got)
	}

	bill.SetTipAmount(d("3"))
	if got := bill.Tip(decimal.Zero); !got.Equal(d("3")) {
		t.Errorf("Expected custom to overwrite preset tip, got %s", got)
	}

	bill.ClearTip()
	if got := bill.Tip(decimal.Zero); !got.IsZero() {
		t.Errorf("Expected cleared tip, got %s", got)
	}
}

func TestRemoveAndClear(t *testing.T) {
	bill := NewBill(decimal.Zero)
	a := bill.Add("A", FiatMoney(d("1")))
	bill.Add("B", FiatMoney(d("2")))

	bill.Remove(a.ID)
	if got := bill.Subtotal(decimal.Zero); !got.Equal(d("2")) {
		t.Errorf("Expected subtotal 2 after removal, got %s", got)
	}
	bill.Remove("missing-id")

	bill.Clear()
	if !bill.Empty() {
		t.Error("Expected empty bill after Clear")
	}
}

func TestSnapshotIsFrozen(t *testing.T) {
	bill := NewBill(decimal.Zero)
	bill.Add("Item", FiatMoney(d("5")))

	snapshot := bill.Snapshot(decimal.Zero)
	bill.Clear()
	bill.Add("Other", FiatMoney(d("99")))

	if len(snapshot.Items) != 1 || snapshot.Items[0].Label != "Item" {
		t.Errorf("Expected snapshot to keep the original items, got %+v", snapshot.Items)
	}
	if !snapshot.TotalFiat.Equal(d("5")) {
		t.Errorf("Expected snapshot total 5, got %s", snapshot.TotalFiat)
	}
}

func TestSettlementAmount(t *testing.T) {
	rate := decimal.NewFromInt(50000)
	total := d("9.225")

	money, display := SettlementAmount(total, Sats, rate)
	if money.Kind != Sats || money.Sats != 18450 {
		t.Errorf("Expected 18450 sats, got %+v", money)
	}
	if display != "18,450 sats" {
		t.Errorf("Expected display '18,450 sats', got %q", display)
	}

	money, display = SettlementAmount(total, Fiat, rate)
	if money.Kind != Fiat || !money.Fiat.Equal(total) {
		t.Errorf("Expected fiat settlement of %s, got %+v", total, money)
	}
	if display != "$9.23" {
		t.Errorf("Expected display '$9.23', got %q", display)
	}

	// Sats settlement without a rate degrades to fiat.
	money, _ = SettlementAmount(total, Sats, decimal.Zero)
	if money.Kind != Fiat {
		t.Errorf("Expected fiat fallback without a rate, got %+v", money)
	}
}
