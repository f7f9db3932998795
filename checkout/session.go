// Package checkout owns the lifecycle of one in-flight invoice: creating
// it, showing it to the payer, counting down to expiry, polling for
// confirmation and committing the ledgers when payment lands.
package checkout

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	lnpos "github.com/lightningpos/lnpos"
	"github.com/lightningpos/lnpos/ledger"
	"github.com/lightningpos/lnpos/qr"
)

// State is the settlement position of a session.
type State int

const (
	StateIdle State = iota
	StateCreating
	StateAwaitingPayment
	StatePaid
	StateExpired
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateCreating:
		return "CREATING"
	case StateAwaitingPayment:
		return "AWAITING_PAYMENT"
	case StatePaid:
		return "PAID"
	case StateExpired:
		return "EXPIRED"
	case StateCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// ConfirmationSource says how a payment confirmation arrived. Both sources
// drive the identical transition, gated identically by state.
type ConfirmationSource int

const (
	// SourcePoll is a PAID status observed from the processor.
	SourcePoll ConfirmationSource = iota
	// SourceManualOverride is the developer-mode pretend-pay control.
	SourceManualOverride
)

// ErrManualOverrideDisabled is returned when a manual confirmation arrives
// outside developer mode.
var ErrManualOverrideDisabled = errors.New("checkout: manual override requires developer mode")

// Gateway is the processor surface a session needs.
type Gateway interface {
	CreateInvoice(ctx context.Context, amount lnpos.Money, description string) (*lnpos.Invoice, error)
	InvoiceStatus(ctx context.Context, invoiceID string) (lnpos.InvoiceState, error)
}

// Display receives the payer-facing side effects. Implementations must not
// call back into the session; they are invoked with its lock held so the
// paid transition stays atomic from the caller's perspective.
type Display interface {
	// ShowInvoice presents the payment request, its scannable encoding
	// (nil when encoding failed) and the settlement amount.
	ShowInvoice(paymentRequest string, qrPNG []byte, amountDisplay string)
	// Countdown reports the seconds remaining before local expiry.
	Countdown(secondsLeft int)
	// Expired marks the displayed invoice as expired. Polling continues:
	// a payment landing after local expiry is still honored.
	Expired()
	// Paid reports the completed sale.
	Paid(txn lnpos.Transaction)
	// Error surfaces a creation failure to the merchant.
	Error(message string)
}

// Timer intervals. The countdown renders at one-second resolution; status
// polling runs on a fixed two-second cadence.
const (
	DefaultCountdownInterval = time.Second
	DefaultPollInterval      = 2 * time.Second
)

const maxSaleDescriptionLen = 180

// Config wires a session to its collaborators.
type Config struct {
	Gateway      Gateway
	Display      Display
	Pending      *ledger.PendingLedger
	Transactions *ledger.TransactionLedger
	Rates        *lnpos.RateCache

	// DeveloperMode enables the manual pay override.
	DeveloperMode bool

	// CountdownInterval and PollInterval override the fixed timer
	// cadences, for tests (optional).
	CountdownInterval time.Duration
	PollInterval      time.Duration
}

// Session is the settlement state machine for one checkout view. At most
// one checkout is active at a time; starting another while one is in
// flight fails with ErrCheckoutActive.
type Session struct {
	mu  sync.Mutex
	cfg Config

	state       State
	bill        *lnpos.Bill
	snapshot    *lnpos.SaleSnapshot
	invoice     *lnpos.Invoice
	secondsLeft int

	// Timer handles. Every exit path clears both before returning;
	// leaking a timer that keeps firing against a closed checkout is the
	// defect class this layout guards against.
	countdownStop chan struct{}
	pollStop      chan struct{}
}

// NewSession creates an idle session.
func NewSession(cfg Config) *Session {
	if cfg.CountdownInterval <= 0 {
		cfg.CountdownInterval = DefaultCountdownInterval
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Session{cfg: cfg, state: StateIdle}
}

// State returns the current settlement state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Checkout freezes the bill into a sale snapshot, requests an invoice for
// its settlement amount and, on success, shows it to the payer, records a
// pending entry and starts the countdown and poll timers. On gateway
// failure the session returns to idle and the error is surfaced through
// the display with remediation guidance where the failure suggests a
// missing credential scope.
func (s *Session) Checkout(ctx context.Context, bill *lnpos.Bill, settle lnpos.CurrencyKind) error {
	s.mu.Lock()
	if s.active() {
		s.mu.Unlock()
		return lnpos.ErrCheckoutActive
	}
	if bill.Empty() {
		s.mu.Unlock()
		return lnpos.ErrEmptyCart
	}

	rate := s.cfg.Rates.Rate()
	snapshot := bill.Snapshot(rate)
	amount, amountDisplay := lnpos.SettlementAmount(snapshot.TotalFiat, settle, rate)

	s.state = StateCreating
	s.bill = bill
	s.snapshot = nil
	s.invoice = nil
	s.mu.Unlock()

	inv, err := s.cfg.Gateway.CreateInvoice(ctx, amount, saleDescription(snapshot.Items))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.state == StateCreating {
			s.state = StateIdle
			s.cfg.Display.Error(errorHint(err))
		}
		return err
	}

	s.snapshot = &snapshot
	s.invoice = inv
	if s.state != StateCreating {
		// Cancelled while the create was in flight. CANCELLED is
		// terminal: keep the recovery record but start no timers and
		// touch no display against the dismissed view.
		_ = s.cfg.Pending.Upsert(s.pendingEntryLocked(amountDisplay, inv.ExpirationInSec))
		return nil
	}
	s.enterAwaitingLocked(ctx, amountDisplay, inv.ExpirationInSec, inv.ExpirationInSec)
	return nil
}

// Resume re-enters awaiting-payment for a pending entry without creating a
// new invoice. The countdown restarts from the time remaining on the
// original expiry (zero when already elapsed, which shows expired
// immediately); polling resumes from scratch. Entries without a stored
// payment request cannot be resumed.
func (s *Session) Resume(ctx context.Context, entry lnpos.PendingInvoiceEntry) error {
	if entry.PaymentRequest == "" {
		return lnpos.ErrResumeUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active() {
		return lnpos.ErrCheckoutActive
	}

	remaining := entry.ExpirationInSec
	if !entry.CreatedAt.IsZero() {
		remaining -= int(time.Since(entry.CreatedAt).Seconds())
	}
	if remaining < 0 {
		remaining = 0
	}

	amountDisplay := entry.AmountDisplay
	if amountDisplay == "" {
		amountDisplay = lnpos.FormatFiat(entry.TotalFiat)
	}

	s.bill = nil
	s.snapshot = entry.SaleSnapshot
	s.invoice = &lnpos.Invoice{
		InvoiceID:       entry.InvoiceID,
		PaymentRequest:  entry.PaymentRequest,
		ExpirationInSec: remaining,
	}
	// The stored entry keeps its original expiry; only the countdown runs
	// from the remaining time. Writing the remaining back would shrink
	// the stored expiry on every resume.
	s.enterAwaitingLocked(ctx, amountDisplay, remaining, entry.ExpirationInSec)
	return nil
}

// Cancel tears down the checkout view before payment. Both timers stop.
// The pending entry is deliberately kept: the merchant can reopen the
// pending list later and resume watching the same invoice.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		return
	}
	s.stopTimersLocked()
	s.state = StateCancelled
}

// ConfirmPayment applies a payment confirmation. Poll observations and the
// developer-mode manual override drive the same transition; the override
// is refused outside developer mode. The transition is idempotent: once
// the session has left awaiting-payment (or local expiry), further
// confirmations are no-ops, so a duplicate PAID poll produces exactly one
// transaction and one pending-entry removal. Local expiry does not block
// confirmation.
func (s *Session) ConfirmPayment(source ConfirmationSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if source == SourceManualOverride && !s.cfg.DeveloperMode {
		return ErrManualOverrideDisabled
	}
	if s.state != StateAwaitingPayment && s.state != StateExpired {
		return nil
	}

	// Ledger writes happen before the state commits to PAID. A failed
	// append leaves the session where it was, so a later confirmation
	// (the next poll tick, or the override) retries the recording.
	var txn lnpos.Transaction
	if s.snapshot != nil {
		txn = lnpos.Transaction{
			Items:        s.snapshot.Items,
			SubtotalFiat: s.snapshot.SubtotalFiat,
			TaxFiat:      s.snapshot.TaxFiat,
			TipFiat:      s.snapshot.TipFiat,
			TotalFiat:    s.snapshot.TotalFiat,
			RateAtSale:   s.cfg.Rates.Rate(),
		}
		stored, err := s.cfg.Transactions.Append(txn)
		if err != nil {
			s.cfg.Display.Error("Payment received but recording the sale failed. Retrying.")
			return err
		}
		txn = stored
	}
	// A failed removal leaves a stale pending entry behind; the sale is
	// recorded either way and the merchant can clear the entry manually.
	_ = s.cfg.Pending.Remove(s.invoice.InvoiceID)

	s.stopTimersLocked()
	s.state = StatePaid
	if s.bill != nil {
		s.bill.Clear()
	}
	s.cfg.Display.Paid(txn)
	return nil
}

// active reports whether an invoice is being created or watched. Expired
// counts as active because its poll timer is still running. Must be called
// with the lock held.
func (s *Session) active() bool {
	return s.state == StateCreating || s.state == StateAwaitingPayment || s.state == StateExpired
}

// pendingEntryLocked builds the recovery record for the current invoice.
// Must be called with the lock held and s.invoice set.
func (s *Session) pendingEntryLocked(amountDisplay string, expirationInSec int) lnpos.PendingInvoiceEntry {
	entry := lnpos.PendingInvoiceEntry{
		InvoiceID:       s.invoice.InvoiceID,
		CreatedAt:       time.Now(),
		AmountDisplay:   amountDisplay,
		SaleSnapshot:    s.snapshot,
		PaymentRequest:  s.invoice.PaymentRequest,
		ExpirationInSec: expirationInSec,
	}
	if s.snapshot != nil {
		entry.TotalFiat = s.snapshot.TotalFiat
	}
	return entry
}

// enterAwaitingLocked performs the awaiting-payment entry side effects
// together: pending-entry upsert, payer display, countdown and poll
// timers. The countdown runs from countdownSec while the recovery record
// carries storedExpirySec, which on a resumed invoice is the original
// expiry, not the remaining time. Must be called with the lock held and
// s.invoice set.
func (s *Session) enterAwaitingLocked(ctx context.Context, amountDisplay string, countdownSec, storedExpirySec int) {
	s.state = StateAwaitingPayment

	// Upsert failure is not fatal to the checkout; the invoice is live
	// either way and the payer is already waiting.
	_ = s.cfg.Pending.Upsert(s.pendingEntryLocked(amountDisplay, storedExpirySec))

	png, err := qr.Encode(s.invoice.PaymentRequest)
	if err != nil {
		png = nil
	}
	s.cfg.Display.ShowInvoice(s.invoice.PaymentRequest, png, amountDisplay)

	s.secondsLeft = countdownSec
	if s.secondsLeft > 0 {
		s.cfg.Display.Countdown(s.secondsLeft)
		s.countdownStop = make(chan struct{})
		go s.runCountdown(s.countdownStop)
	} else {
		s.state = StateExpired
		s.cfg.Display.Expired()
	}

	s.pollStop = make(chan struct{})
	go s.runPoll(ctx, s.pollStop, s.invoice.InvoiceID)
}

// stopTimersLocked clears both timer handles. Must be called with the lock
// held; safe to call on every exit path, including when a timer already
// stopped itself.
func (s *Session) stopTimersLocked() {
	if s.countdownStop != nil {
		close(s.countdownStop)
		s.countdownStop = nil
	}
	if s.pollStop != nil {
		close(s.pollStop)
		s.pollStop = nil
	}
}

func (s *Session) runCountdown(stop chan struct{}) {
	ticker := time.NewTicker(s.cfg.CountdownInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.tickCountdown() {
				return
			}
		}
	}
}

// tickCountdown advances the expiry countdown one second. Returns false
// when the countdown is finished. On expiry only the display changes and
// the countdown stops; the poll timer keeps running so a payment landing
// after the displayed expiry, but before the processor expires the
// invoice, is still honored.
func (s *Session) tickCountdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingPayment {
		return false
	}
	s.secondsLeft--
	if s.secondsLeft <= 0 {
		s.state = StateExpired
		s.countdownStop = nil
		s.cfg.Display.Expired()
		return false
	}
	s.cfg.Display.Countdown(s.secondsLeft)
	return true
}

func (s *Session) runPoll(ctx context.Context, stop chan struct{}, invoiceID string) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	s.pollOnce(ctx, invoiceID)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce(ctx, invoiceID)
		}
	}
}

// pollOnce asks the processor for the invoice state. Poll failures are
// swallowed: transient errors are expected and must not interrupt the
// countdown or alarm the payer.
func (s *Session) pollOnce(ctx context.Context, invoiceID string) {
	state, err := s.cfg.Gateway.InvoiceStatus(ctx, invoiceID)
	if err != nil {
		return
	}
	if state == lnpos.StatePaid {
		_ = s.ConfirmPayment(SourcePoll)
	}
}

// saleDescription summarizes the cart for the processor invoice.
func saleDescription(items []lnpos.CartLine) string {
	labels := make([]string, len(items))
	for i, line := range items {
		labels[i] = line.Label
	}
	joined := strings.Join(labels, ", ")
	if len(joined) > maxSaleDescriptionLen {
		joined = joined[:maxSaleDescriptionLen]
	}
	return "POS – " + joined
}

var permissionPattern = regexp.MustCompile(`(?i)insufficient permissions|forbidden`)

// ScopeHint replaces permission failures from the processor with guidance
// naming the credential scopes invoice creation needs.
const ScopeHint = `Your API key does not have the required permissions. Edit the key in the processor dashboard and enable the "Create invoice" (partner.invoice.create) and "Generate invoice quote" (partner.invoice.quote.generate) scopes, then try again.`

// errorHint converts a gateway failure into the single message surfaced to
// the merchant.
func errorHint(err error) string {
	if errors.Is(err, lnpos.ErrNoAPIKey) {
		return "Set an API key in Settings to create invoices."
	}
	var upstream *lnpos.UpstreamError
	if errors.As(err, &upstream) {
		if permissionPattern.MatchString(upstream.Message) {
			return ScopeHint
		}
		return upstream.Message
	}
	return "Failed to create invoice. Check your connection and try again."
}
