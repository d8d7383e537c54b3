package node

import (
	"github.com/Klingon-tech/trd-wallet/internal/wallet"
	"github.com/Klingon-tech/trd-wallet/pkg/types"
	"github.com/rs/zerolog"
)

// logNotifier reports engine events in the daemon log.
type logNotifier struct {
	logger zerolog.Logger
}

func newLogNotifier(logger zerolog.Logger) *logNotifier {
	return &logNotifier{logger: logger}
}

func (l *logNotifier) OnBlockHeightChanged(height int64) {
	l.logger.Info().Int64("height", height).Msg("Block height")
}

func (l *logNotifier) OnAddressesChecked(progress float64) {
	if progress >= 1 {
		l.logger.Info().Msg("Address scan complete")
		return
	}
	l.logger.Debug().Float64("progress", progress).Msg("Address scan")
}

func (l *logNotifier) OnTransactionsChanged(txs []*wallet.Transaction) {
	if len(txs) == 0 {
		return
	}
	ev := l.logger.Info().Int("count", len(txs))
	if len(txs) == 1 {
		ev = ev.Str("txid", txs[0].TxID).Str("currency", txs[0].CurrencyCode)
	}
	ev.Msg("Transactions changed")
}

func (l *logNotifier) OnBalanceChanged(currencyCode string, balance types.Amount) {
	l.logger.Info().
		Str("currency", currencyCode).
		Str("balance", balance.String()).
		Msg("Balance")
}
