package lnpos

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatFiat renders a fiat amount for display, rounded to two digits with
// thousands separators, e.g. "$1,234.50".
func FormatFiat(amount decimal.Decimal) string {
	s := amount.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")
	out := "$" + groupThousands(whole) + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

// FormatSats renders an integer satoshi amount for display, e.g.
// "18,450 sats".
func FormatSats(sats int64) string {
	neg := sats < 0
	if neg {
		sats = -sats
	}
	out := groupThousands(strconv.FormatInt(sats, 10)) + " sats"
	if neg {
		out = "-" + out
	}
	return out
}

// ReceiptRateLine renders the exchange-rate footer for a receipt, e.g.
// "1 BTC = $50,000.00 · 2,000 sats/$". Empty when the rate is unknown.
func ReceiptRateLine(fiatPerBTC decimal.Decimal) string {
	if fiatPerBTC.Sign() <= 0 {
		return ""
	}
	satsPerUnit := satsPerBTC.Div(fiatPerBTC).Round(0).IntPart()
	return "1 BTC = " + FormatFiat(fiatPerBTC) + " · " + groupThousands(strconv.FormatInt(satsPerUnit, 10)) + " sats/$"
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
