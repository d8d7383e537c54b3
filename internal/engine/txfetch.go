package engine

import (
	"context"
	"errors"

	"github.com/Klingon-tech/trd-wallet/internal/indexer"
	"github.com/Klingon-tech/trd-wallet/internal/wallet"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// txFetcher resolves queued txids into ledger entries. Changed entries are
// accumulated and delivered as one batch once the queue drains.
type txFetcher struct {
	state  *wallet.State
	idx    Indexer
	notify Notifier
	logger zerolog.Logger

	// Only touched from the fetcher goroutine.
	changed []*wallet.Transaction
}

func (f *txFetcher) cycle(ctx context.Context) error {
	pending := f.state.PendingTxids()
	if len(pending) > 0 {
		results := make([]*indexer.TransactionResponse, len(pending))
		var g errgroup.Group
		for i, txid := range pending {
			g.Go(func() error {
				resp, err := f.idx.Transaction(ctx, txid)
				switch {
				case err == nil && resp.TxID != txid:
					f.logger.Warn().Str("txid", txid).Str("got", resp.TxID).Msg("Indexer returned a different transaction")
				case errors.Is(err, indexer.ErrInvalidResponse):
					// Left queued; retried on the next cycle.
					f.logger.Warn().Err(err).Str("txid", txid).Msg("Malformed transaction response")
				case err != nil:
					if ctx.Err() == nil {
						f.logger.Debug().Err(err).Str("txid", txid).Msg("Transaction fetch failed")
					}
				default:
					results[i] = resp
				}
				return nil
			})
		}
		g.Wait()
		if ctx.Err() != nil {
			return nil
		}

		for _, resp := range results {
			if resp == nil {
				continue
			}
			for _, tx := range f.state.ApplyTransaction(resp.Detail()) {
				f.record(tx)
			}
		}
	}

	if len(f.changed) > 0 && len(f.state.PendingTxids()) == 0 {
		f.logger.Debug().Int("transactions", len(f.changed)).Msg("Transactions changed")
		f.notify.OnTransactionsChanged(f.changed)
		f.changed = nil
	}
	return nil
}

// record adds tx to the accumulator, replacing an earlier entry for the same
// txid and currency.
func (f *txFetcher) record(tx *wallet.Transaction) {
	for i, c := range f.changed {
		if c.TxID == tx.TxID && c.CurrencyCode == tx.CurrencyCode {
			f.changed[i] = tx
			return
		}
	}
	f.changed = append(f.changed, tx)
}
