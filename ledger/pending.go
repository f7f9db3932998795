package ledger

import (
	"sync"
	"time"

	lnpos "github.com/lightningpos/lnpos"
)

// PendingLedger is the durable list of invoices shown to a payer but not
// yet confirmed paid. It is the recovery mechanism for closing or
// navigating away from the app mid-payment: entries stay until payment is
// confirmed or the merchant removes them explicitly.
type PendingLedger struct {
	mu    sync.Mutex
	store Store
}

// NewPendingLedger creates a pending ledger over the given store.
func NewPendingLedger(store Store) *PendingLedger {
	return &PendingLedger{store: store}
}

// Upsert adds the entry, or refreshes an existing entry with the same
// invoice id. On refresh only the payment request and expiry are updated;
// the sale snapshot and the other fields are immutable once set.
func (l *PendingLedger) Upsert(entry lnpos.PendingInvoiceEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].InvoiceID == entry.InvoiceID {
			if entry.PaymentRequest != "" {
				entries[i].PaymentRequest = entry.PaymentRequest
			}
			entries[i].ExpirationInSec = entry.ExpirationInSec
			return l.store.Save(PendingKey, entries)
		}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entries = append(entries, entry)
	return l.store.Save(PendingKey, entries)
}

// Remove deletes the entry with the given invoice id. Removing an unknown
// id is a no-op.
func (l *PendingLedger) Remove(invoiceID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.InvoiceID != invoiceID {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}
	return l.store.Save(PendingKey, kept)
}

// List returns all entries in insertion order, oldest first.
func (l *PendingLedger) List() ([]lnpos.PendingInvoiceEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// Get returns the entry with the given invoice id, or false.
func (l *PendingLedger) Get(invoiceID string) (lnpos.PendingInvoiceEntry, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return lnpos.PendingInvoiceEntry{}, false, err
	}
	for _, e := range entries {
		if e.InvoiceID == invoiceID {
			return e, true, nil
		}
	}
	return lnpos.PendingInvoiceEntry{}, false, nil
}

func (l *PendingLedger) load() ([]lnpos.PendingInvoiceEntry, error) {
	var entries []lnpos.PendingInvoiceEntry
	if err := l.store.Load(PendingKey, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
