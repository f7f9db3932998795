package lnpos

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyKind identifies which denomination a Money value carries.
type CurrencyKind string

const (
	// Fiat is the merchant's fiat currency (USD by default).
	Fiat CurrencyKind = "USD"
	// Sats is the Bitcoin satoshi denomination.
	Sats CurrencyKind = "sats"
)

// Money is a tagged amount in exactly one denomination. Fiat amounts are
// arbitrary-precision decimals; sats are whole integers. Crossing between
// the two goes through ToFiat/ToSats, never through implicit arithmetic.
type Money struct {
	Kind CurrencyKind
	// Fiat holds the amount when Kind == Fiat.
	Fiat decimal.Decimal
	// Sats holds the amount when Kind == Sats.
	Sats int64
}

// FiatMoney wraps a fiat decimal amount.
func FiatMoney(amount decimal.Decimal) Money {
	return Money{Kind: Fiat, Fiat: amount}
}

// SatsMoney wraps an integer satoshi amount.
func SatsMoney(sats int64) Money {
	return Money{Kind: Sats, Sats: sats}
}

type moneyJSON struct {
	Currency CurrencyKind `json:"currency"`
	Amount   string       `json:"amount"`
}

// MarshalJSON encodes the amount as a decimal string so fiat values survive
// round trips without float precision loss.
func (m Money) MarshalJSON() ([]byte, error) {
	amount := m.Fiat.String()
	if m.Kind == Sats {
		amount = decimal.NewFromInt(m.Sats).String()
	}
	return json.Marshal(moneyJSON{Currency: m.Kind, Amount: amount})
}

// UnmarshalJSON decodes a {currency, amount} pair.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		return fmt.Errorf("invalid money amount %q: %w", raw.Amount, err)
	}
	switch raw.Currency {
	case Sats:
		*m = SatsMoney(amount.IntPart())
	case Fiat:
		*m = FiatMoney(amount)
	default:
		return fmt.Errorf("unknown currency %q", raw.Currency)
	}
	return nil
}

// CartLine is one entry in the live cart: a keypad amount or a catalog item.
// Insertion order is display order only.
type CartLine struct {
	ID     string `json:"id,omitempty"`
	Label  string `json:"label"`
	Amount Money  `json:"amount"`
}

// SaleSnapshot is the immutable record of a sale captured at the moment a
// settlement is requested. Later cart mutations cannot alter it.
type SaleSnapshot struct {
	Items        []CartLine      `json:"items"`
	SubtotalFiat decimal.Decimal `json:"subtotalFiat"`
	TaxFiat      decimal.Decimal `json:"taxFiat"`
	TipFiat      decimal.Decimal `json:"tipFiat"`
	TotalFiat    decimal.Decimal `json:"totalFiat"`
}

// InvoiceState is the processor-reported state of an invoice.
type InvoiceState string

const (
	StateUnpaid InvoiceState = "UNPAID"
	StatePaid   InvoiceState = "PAID"
	// StateUnknown is returned instead of an error when no credential is
	// configured, so polling degrades gracefully.
	StateUnknown InvoiceState = "UNKNOWN"
)

// Invoice is a processor-hosted Lightning invoice together with its payable
// quote. Owned by one checkout session for the duration of the sale.
type Invoice struct {
	InvoiceID       string    `json:"invoiceId"`
	PaymentRequest  string    `json:"lnInvoice"`
	ExpirationInSec int       `json:"expirationInSec"`
	Expiration      time.Time `json:"expiration,omitzero"`
}

// PendingInvoiceEntry records an invoice shown to a payer but not yet
// confirmed paid on this device. At most one entry exists per invoice id.
type PendingInvoiceEntry struct {
	InvoiceID       string          `json:"invoiceId"`
	CreatedAt       time.Time       `json:"date"`
	AmountDisplay   string          `json:"amountDisplay"`
	TotalFiat       decimal.Decimal `json:"totalFiat"`
	SaleSnapshot    *SaleSnapshot   `json:"saleSnapshot,omitempty"`
	PaymentRequest  string          `json:"lnInvoice,omitempty"`
	ExpirationInSec int             `json:"expirationInSec"`
}

// Transaction is one completed sale in the reconciliation ledger. Created
// exactly once when payment is confirmed; immutable afterward except for
// merchant-initiated deletion.
type Transaction struct {
	ID           string          `json:"id"`
	Date         time.Time       `json:"date"`
	Items        []CartLine      `json:"items"`
	SubtotalFiat decimal.Decimal `json:"subtotalFiat"`
	TaxFiat      decimal.Decimal `json:"taxFiat"`
	TipFiat      decimal.Decimal `json:"tipFiat"`
	TotalFiat    decimal.Decimal `json:"totalFiat"`
	// RateAtSale is the fiat-per-bitcoin exchange rate current when the
	// sale settled, kept for the receipt's rate line.
	RateAtSale decimal.Decimal `json:"exchangeRateAtSale"`
}
