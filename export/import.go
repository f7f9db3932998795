package export

import (
	"encoding/json"
	"errors"

	"github.com/lightningpos/lnpos/ledger"
)

// Import reads a raw backup document, decrypting with the password when it
// is an envelope, and applies its transactions to the ledger. Settings are
// returned for the settings layer to apply; their raw values are not
// interpreted here. A password supplied for a plain bundle is ignored.
func Import(raw []byte, password string, transactions *ledger.TransactionLedger) (map[string]string, error) {
	bundle, err := Parse(raw)
	if errors.Is(err, ErrEncryptedBundle) {
		env, envErr := ParseEnvelope(raw)
		if envErr != nil {
			return nil, envErr
		}
		bundle, err = Decrypt(*env, password)
	}
	if err != nil {
		return nil, err
	}
	return Apply(bundle, transactions)
}

// Apply writes a validated bundle into the till. Transactions replace the
// ledger wholesale when the bundle's scope carries them.
func Apply(bundle *Bundle, transactions *ledger.TransactionLedger) (map[string]string, error) {
	if bundle.Scope == ScopeTransactions || bundle.Scope == ScopeAll {
		if err := transactions.Replace(bundle.Transactions); err != nil {
			return nil, err
		}
	}
	return bundle.Settings, nil
}

// Export assembles and renders a backup for the given scope, encrypting it
// when a password is supplied.
func Export(scope Scope, transactions *ledger.TransactionLedger, settings map[string]string, password string) ([]byte, error) {
	list, err := transactions.List()
	if err != nil {
		return nil, err
	}
	bundle := NewBundle(scope, list, settings)
	if password == "" {
		return bundle.Marshal()
	}
	env, err := Encrypt(bundle, password)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}
