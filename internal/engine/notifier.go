package engine

import (
	"github.com/Klingon-tech/trd-wallet/internal/wallet"
	"github.com/Klingon-tech/trd-wallet/pkg/types"
)

// Notifier receives engine events. Calls are made from the engine's task
// goroutines and must not block for long.
type Notifier interface {
	OnBlockHeightChanged(height int64)
	// OnAddressesChecked reports scan progress in (0, 1). The value 1 is
	// delivered exactly once, after the first fully resolved scan.
	OnAddressesChecked(progress float64)
	OnTransactionsChanged(txs []*wallet.Transaction)
	OnBalanceChanged(currencyCode string, balance types.Amount)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) OnBlockHeightChanged(int64) {}
func (NopNotifier) OnAddressesChecked(float64) {}
func (NopNotifier) OnTransactionsChanged([]*wallet.Transaction) {}
func (NopNotifier) OnBalanceChanged(string, types.Amount) {}
