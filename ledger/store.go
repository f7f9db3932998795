// Package ledger holds the durable records of the till: the pending-invoice
// list that survives app restarts mid-payment, and the append-only
// transaction ledger used for reconciliation.
package ledger

import "sync"

// Namespaced persistence keys. Each key holds one whole JSON sequence,
// loaded and saved in full on every mutation.
const (
	PendingKey      = "lnpos_pending_invoices"
	TransactionsKey = "lnpos_transactions"
)

// Store persists one JSON document per key.
//
// FileStore is the production implementation; MemoryStore backs tests. For
// anything multi-device a shared backend would be needed, but this design
// assumes a single till.
type Store interface {
	// Load unmarshals the document at key into v. A missing key leaves v
	// untouched and returns no error.
	Load(key string, v interface{}) error

	// Save marshals v and writes it at key, replacing any previous value.
	Save(key string, v interface{}) error
}

// MemoryStore is an in-memory Store for tests and ephemeral tills.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

// Load implements Store.
func (s *MemoryStore) Load(key string, v interface{}) error {
	s.mu.Lock()
	raw, ok := s.docs[key]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return unmarshalDoc(raw, v)
}

// Save implements Store.
func (s *MemoryStore) Save(key string, v interface{}) error {
	raw, err := marshalDoc(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[key] = raw
	s.mu.Unlock()
	return nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
