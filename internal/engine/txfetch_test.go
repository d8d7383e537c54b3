package engine

import (
	"context"
	"testing"

	"github.com/Klingon-tech/trd-wallet/internal/log"
	"github.com/Klingon-tech/trd-wallet/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T) (*txFetcher, *fakeIndexer, *recorder, []string) {
	t.Helper()
	d, err := wallet.NewReferenceDeriver("mpk")
	require.NoError(t, err)
	st, err := wallet.NewState(wallet.NewSnapshot("mpk", wallet.PrimaryCurrency), wallet.PrimaryCurrency, nil)
	require.NoError(t, err)
	addrs, err := st.PrepareScan(d, wallet.GapLimit)
	require.NoError(t, err)
	idx, rec := newFakeIndexer(), newRecorder()
	return &txFetcher{state: st, idx: idx, notify: rec, logger: log.Fetcher}, idx, rec, addrs
}

func TestTxFetcher_BatchDeliveredWhenQueueDrains(t *testing.T) {
	f, idx, rec, addrs := newTestFetcher(t)
	ctx := context.Background()

	_, err := f.state.ApplyAddress(0, []string{"a", "b"}, wallet.Balances{})
	require.NoError(t, err)
	idx.receive("a", addrs[0], "10", 1)
	// "b" is unknown to the indexer for now.

	require.NoError(t, f.cycle(ctx))
	assert.Empty(t, rec.batchTxids(), "queue not empty, nothing delivered")
	assert.Equal(t, []string{"b"}, f.state.PendingTxids())

	idx.receive("b", addrs[0], "20", 2)
	require.NoError(t, f.cycle(ctx))
	assert.Equal(t, []string{"a", "b"}, rec.batchTxids())
	assert.Empty(t, f.changed)

	// Nothing new: no further batch.
	require.NoError(t, f.cycle(ctx))
	rec.mu.Lock()
	assert.Len(t, rec.batches, 1)
	rec.mu.Unlock()
}

func TestTxFetcher_MismatchedTxidStaysQueued(t *testing.T) {
	f, idx, _, addrs := newTestFetcher(t)
	_, err := f.state.ApplyAddress(0, []string{"want"}, wallet.Balances{})
	require.NoError(t, err)
	idx.receive("other", addrs[0], "1", 1)
	idx.mu.Lock()
	idx.txs["want"] = idx.txs["other"]
	idx.mu.Unlock()

	require.NoError(t, f.cycle(context.Background()))
	assert.Equal(t, []string{"want"}, f.state.PendingTxids())
	assert.Zero(t, f.state.TransactionCount("TRD"))
}

func TestTxFetcher_RecordReplacesSameEntry(t *testing.T) {
	f, _, _, _ := newTestFetcher(t)
	f.record(&wallet.Transaction{TxID: "x", CurrencyCode: "TRD", Timestamp: 1})
	f.record(&wallet.Transaction{TxID: "x", CurrencyCode: "TOK", Timestamp: 1})
	f.record(&wallet.Transaction{TxID: "x", CurrencyCode: "TRD", Timestamp: 2})

	require.Len(t, f.changed, 2)
	assert.Equal(t, int64(2), f.changed[0].Timestamp)
}
