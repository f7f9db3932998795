package lnpos

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestToFiatIdentity(t *testing.T) {
	amount := decimal.RequireFromString("12.34")
	got := ToFiat(FiatMoney(amount), decimal.Zero)
	if !got.Equal(amount) {
		t.Errorf("Expected fiat passthrough %s, got %s", amount, got)
	}
}

func TestToFiatFromSats(t *testing.T) {
	rate := decimal.NewFromInt(50000)
	got := ToFiat(SatsMoney(100_000_000), rate)
	if !got.Equal(rate) {
		t.Errorf("Expected one whole bitcoin to equal the rate %s, got %s", rate, got)
	}
}

func TestToFiatUnknownRate(t *testing.T) {
	// A zero cross-currency result means "rate unavailable", not "free".
	if got := ToFiat(SatsMoney(1000), decimal.Zero); !got.IsZero() {
		t.Errorf("Expected zero with unknown rate, got %s", got)
	}
	if got := ToSats(FiatMoney(decimal.NewFromInt(5)), decimal.Zero); got != 0 {
		t.Errorf("Expected zero sats with unknown rate, got %d", got)
	}
}

func TestToSatsIdentity(t *testing.T) {
	if got := ToSats(SatsMoney(1234), decimal.Zero); got != 1234 {
		t.Errorf("Expected sats passthrough 1234, got %d", got)
	}
}

func TestToSatsSettlementScenario(t *testing.T) {
	// total 9.225 fiat at 50000 fiat/BTC settles as 18450 sats.
	rate := decimal.NewFromInt(50000)
	got := ToSats(FiatMoney(decimal.RequireFromString("9.225")), rate)
	if got != 18450 {
		t.Errorf("Expected 18450 sats, got %d", got)
	}
}

func TestSatsRoundTrip(t *testing.T) {
	rate := decimal.NewFromInt(64123)
	for _, amount := range []string{"0.01", "1.00", "9.225", "123.45"} {
		fiat := decimal.RequireFromString(amount)
		sats := ToSats(FiatMoney(fiat), rate)
		back := ToFiat(SatsMoney(sats), rate)
		// The integer-sats round trip loses at most half a satoshi's
		// worth of fiat.
		tolerance := rate.Div(decimal.NewFromInt(SatsPerBTC))
		if back.Sub(fiat).Abs().GreaterThan(tolerance) {
			t.Errorf("Round trip of %s drifted to %s (tolerance %s)", fiat, back, tolerance)
		}
	}
}

func TestBTCAmount(t *testing.T) {
	if got := BTCAmount(18450); got != "0.00018450" {
		t.Errorf("Expected 0.00018450, got %s", got)
	}
	if got := BTCAmount(SatsPerBTC); got != "1.00000000" {
		t.Errorf("Expected 1.00000000, got %s", got)
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	for _, m := range []Money{FiatMoney(decimal.RequireFromString("9.225")), SatsMoney(18450)} {
		raw, err := m.MarshalJSON()
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		var back Money
		if err := back.UnmarshalJSON(raw); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if back.Kind != m.Kind || !back.Fiat.Equal(m.Fiat) || back.Sats != m.Sats {
			t.Errorf("Round trip changed %+v to %+v", m, back)
		}
	}
}
