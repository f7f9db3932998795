package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"

	lnpos "github.com/lightningpos/lnpos"
)

// TransactionLedger is the append-only record of completed sales.
// Chronological by creation; entries never change after append, except for
// explicit merchant-initiated deletion.
type TransactionLedger struct {
	mu    sync.Mutex
	store Store
}

// NewTransactionLedger creates a transaction ledger over the given store.
func NewTransactionLedger(store Store) *TransactionLedger {
	return &TransactionLedger{store: store}
}

// Append records a completed sale. A missing id or date is filled in at
// append time. Returns the transaction as stored.
func (l *TransactionLedger) Append(txn lnpos.Transaction) (lnpos.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.Date.IsZero() {
		txn.Date = time.Now()
	}

	txns, err := l.load()
	if err != nil {
		return lnpos.Transaction{}, err
	}
	txns = append(txns, txn)
	if err := l.store.Save(TransactionsKey, txns); err != nil {
		return lnpos.Transaction{}, err
	}
	return txn, nil
}

// List returns all transactions, oldest first.
func (l *TransactionLedger) List() ([]lnpos.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// Replace swaps the whole ledger contents, used when importing a backup.
func (l *TransactionLedger) Replace(txns []lnpos.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Save(TransactionsKey, txns)
}

// Delete removes a transaction by id, a merchant-initiated correction.
// Deleting an unknown id is a no-op.
func (l *TransactionLedger) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	txns, err := l.load()
	if err != nil {
		return err
	}
	kept := txns[:0]
	for _, t := range txns {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(txns) {
		return nil
	}
	return l.store.Save(TransactionsKey, kept)
}

func (l *TransactionLedger) load() ([]lnpos.Transaction, error) {
	var txns []lnpos.Transaction
	if err := l.store.Load(TransactionsKey, &txns); err != nil {
		return nil, err
	}
	return txns, nil
}
