package lnpos

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type tipKind int

const (
	tipNone tipKind = iota
	tipPercent
	tipCustom
)

// Bill is the live cart plus the tax and tip configuration for one sale.
// It derives subtotal, tax, tip and grand total from its line items; all
// derived figures are fiat, with sats lines converted at the supplied rate.
type Bill struct {
	lines          []CartLine
	taxRatePercent decimal.Decimal

	tipKind   tipKind
	tipPct    decimal.Decimal
	tipAmount decimal.Decimal
}

// NewBill creates an empty bill. The tax rate is a percentage and is
// clamped to zero when negative.
func NewBill(taxRatePercent decimal.Decimal) *Bill {
	if taxRatePercent.Sign() < 0 {
		taxRatePercent = decimal.Zero
	}
	return &Bill{taxRatePercent: taxRatePercent}
}

// Add appends a line to the cart and returns it with its generated id.
func (b *Bill) Add(label string, amount Money) CartLine {
	line := CartLine{ID: uuid.NewString(), Label: label, Amount: amount}
	b.lines = append(b.lines, line)
	return line
}

// Remove deletes the line with the given id. Unknown ids are a no-op.
func (b *Bill) Remove(id string) {
	for i, line := range b.lines {
		if line.ID == id {
			b.lines = append(b.lines[:i], b.lines[i+1:]...)
			return
		}
	}
}

// Clear empties the cart. Tip selection is kept; it belongs to the sale in
// progress, not to the lines.
func (b *Bill) Clear() {
	b.lines = nil
}

// Empty reports whether the cart has no lines.
func (b *Bill) Empty() bool {
	return len(b.lines) == 0
}

// Lines returns a copy of the cart in insertion order.
func (b *Bill) Lines() []CartLine {
	out := make([]CartLine, len(b.lines))
	copy(out, b.lines)
	return out
}

// SetTipPercent selects a preset tip percentage of the subtotal. It
// overwrites any custom tip amount.
func (b *Bill) SetTipPercent(pct decimal.Decimal) {
	if pct.Sign() < 0 {
		pct = decimal.Zero
	}
	b.tipKind = tipPercent
	b.tipPct = pct
	b.tipAmount = decimal.Zero
}

// SetTipAmount selects an absolute fiat tip. It overwrites any preset
// percentage selection.
func (b *Bill) SetTipAmount(amount decimal.Decimal) {
	if amount.Sign() < 0 {
		amount = decimal.Zero
	}
	b.tipKind = tipCustom
	b.tipAmount = amount
	b.tipPct = decimal.Zero
}

// ClearTip removes any tip selection.
func (b *Bill) ClearTip() {
	b.tipKind = tipNone
	b.tipPct = decimal.Zero
	b.tipAmount = decimal.Zero
}

// Subtotal is the fiat sum of all lines at the given rate.
func (b *Bill) Subtotal(rate decimal.Decimal) decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range b.lines {
		subtotal = subtotal.Add(ToFiat(line.Amount, rate))
	}
	return subtotal
}

// Tax is the configured percentage of the subtotal.
func (b *Bill) Tax(rate decimal.Decimal) decimal.Decimal {
	return b.Subtotal(rate).Mul(b.taxRatePercent).Div(decimal.NewFromInt(100))
}

// Tip is the selected tip in fiat: a percentage of the subtotal or the
// entered absolute value, whichever was chosen last.
func (b *Bill) Tip(rate decimal.Decimal) decimal.Decimal {
	switch b.tipKind {
	case tipPercent:
		return b.Subtotal(rate).Mul(b.tipPct).Div(decimal.NewFromInt(100))
	case tipCustom:
		return b.tipAmount
	default:
		return decimal.Zero
	}
}

// Total is subtotal + tax + tip.
func (b *Bill) Total(rate decimal.Decimal) decimal.Decimal {
	return b.Subtotal(rate).Add(b.Tax(rate)).Add(b.Tip(rate))
}

// Snapshot freezes the sale at this instant. The returned value owns a copy
// of the lines, so clearing or mutating the cart afterwards cannot alter a
// sale in flight or already recorded.
func (b *Bill) Snapshot(rate decimal.Decimal) SaleSnapshot {
	return SaleSnapshot{
		Items:        b.Lines(),
		SubtotalFiat: b.Subtotal(rate),
		TaxFiat:      b.Tax(rate),
		TipFiat:      b.Tip(rate),
		TotalFiat:    b.Total(rate),
	}
}

// SettlementAmount computes the amount requested from the processor for a
// total, in the merchant-chosen settlement currency, along with its display
// string. Computed once at invoice creation, not continuously.
func SettlementAmount(totalFiat decimal.Decimal, settle CurrencyKind, rate decimal.Decimal) (Money, string) {
	if settle == Sats && rate.Sign() > 0 {
		sats := ToSats(FiatMoney(totalFiat), rate)
		return SatsMoney(sats), FormatSats(sats)
	}
	return FiatMoney(totalFiat), FormatFiat(totalFiat)
}
