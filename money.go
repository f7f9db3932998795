package lnpos

import "github.com/shopspring/decimal"

// SatsPerBTC is the satoshi-to-whole-bitcoin ratio.
const SatsPerBTC = 100_000_000

var satsPerBTC = decimal.NewFromInt(SatsPerBTC)

// ToFiat converts a Money value to its fiat amount at the given
// fiat-per-bitcoin rate. Fiat input passes through unmodified; no rounding
// is applied at this layer. If the rate is unknown (zero or negative), a
// cross-currency conversion degrades to zero — callers must treat that as
// "rate unavailable", not "free".
func ToFiat(m Money, rate decimal.Decimal) decimal.Decimal {
	if m.Kind == Fiat {
		return m.Fiat
	}
	if rate.Sign() <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(m.Sats).Div(satsPerBTC).Mul(rate)
}

// ToSats converts a Money value to integer satoshis at the given
// fiat-per-bitcoin rate. Sats input passes through; fiat is rounded to the
// nearest satoshi. A zero rate degrades cross-currency conversion to zero.
func ToSats(m Money, rate decimal.Decimal) int64 {
	if m.Kind == Sats {
		return m.Sats
	}
	if rate.Sign() <= 0 {
		return 0
	}
	return m.Fiat.Div(rate).Mul(satsPerBTC).Round(0).IntPart()
}

// BTCAmount renders an integer satoshi amount as the processor's fractional
// bitcoin representation with 8 decimal digits.
func BTCAmount(sats int64) string {
	return decimal.NewFromInt(sats).Div(satsPerBTC).StringFixed(8)
}
