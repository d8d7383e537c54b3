package wallet

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSpend is returned for malformed spend requests.
	ErrInvalidSpend = errors.New("invalid spend request")
	// ErrUnsupportedCurrency is returned for currency codes the wallet does not track.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	// ErrInsufficientFunds is returned when a spend exceeds the available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrKeyMismatch is returned when a stored snapshot belongs to another key.
	ErrKeyMismatch = errors.New("snapshot master public key mismatch")
)

// ConsistencyError reports a stored address that no longer matches local
// derivation. The wallet state cannot be trusted once this happens.
type ConsistencyError struct {
	Index   int
	Stored  string
	Derived string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("address %d mismatch: stored %s, derived %s", e.Index, e.Stored, e.Derived)
}
