package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/Klingon-tech/trd-wallet/internal/log"
	"github.com/Klingon-tech/trd-wallet/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScanner(t *testing.T) (*scanner, *fakeIndexer, *recorder, wallet.Deriver) {
	t.Helper()
	d, err := wallet.NewReferenceDeriver("mpk")
	require.NoError(t, err)
	st, err := wallet.NewState(wallet.NewSnapshot("mpk", wallet.PrimaryCurrency), wallet.PrimaryCurrency, nil)
	require.NoError(t, err)
	idx, rec := newFakeIndexer(), newRecorder()
	return &scanner{
		state:    st,
		deriver:  d,
		idx:      idx,
		notify:   rec,
		gapLimit: wallet.GapLimit,
		logger:   log.Scanner,
	}, idx, rec, d
}

func TestScanner_ProgressThenSingleCompletion(t *testing.T) {
	s, _, rec, _ := newTestScanner(t)
	ctx := context.Background()

	require.NoError(t, s.cycle(ctx))
	rec.mu.Lock()
	progress := append([]float64(nil), rec.progress...)
	rec.mu.Unlock()

	require.Len(t, progress, wallet.GapLimit)
	for _, p := range progress[:wallet.GapLimit-1] {
		assert.Greater(t, p, 0.0)
		assert.Less(t, p, 1.0)
	}
	assert.Equal(t, 1.0, progress[wallet.GapLimit-1])

	require.NoError(t, s.cycle(ctx))
	assert.Equal(t, 1, rec.completions())
	assert.True(t, s.addressesChecked())
}

func TestScanner_PerAddressFailureTolerated(t *testing.T) {
	s, idx, rec, d := newTestScanner(t)
	ctx := context.Background()
	a0, _ := d.Derive(0)
	a3, _ := d.Derive(3)
	idx.fund(a0, "10", "t0")
	idx.setAddrErr(a3, errors.New("connection reset"))

	require.NoError(t, s.cycle(ctx))
	snap := s.state.Snapshot()
	assert.True(t, snap.Addresses[0].Resolved())
	assert.False(t, snap.Addresses[3].Resolved(), "failed address stays unresolved")
	assert.Equal(t, 1, snap.UnusedAddressIndex)
	assert.Equal(t, "10", s.state.Balance("TRD").String())
	assert.Zero(t, rec.completions(), "incomplete scan is not a completion")

	idx.setAddrErr(a3, nil)
	require.NoError(t, s.cycle(ctx))
	assert.True(t, s.state.Snapshot().Addresses[3].Resolved())
	assert.Equal(t, 1, rec.completions())
}

func TestScanner_WrongAddressAbortsCycle(t *testing.T) {
	s, idx, rec, d := newTestScanner(t)
	a0, _ := d.Derive(0)
	a4, _ := d.Derive(4)
	idx.fund(a0, "10", "t0")
	idx.wrongAddr[a4] = "someone-else"

	require.NoError(t, s.cycle(context.Background()))
	snap := s.state.Snapshot()
	for i, r := range snap.Addresses {
		assert.False(t, r.Resolved(), "address %d must not be stored after an aborted batch", i)
	}
	assert.Zero(t, snap.UnusedAddressIndex)
	assert.True(t, s.state.Balance("TRD").IsZero())
	assert.Zero(t, rec.completions())
	assert.Empty(t, s.state.PendingTxids())
}

func TestScanner_BalanceEvents(t *testing.T) {
	s, idx, rec, d := newTestScanner(t)
	a1, _ := d.Derive(1)
	idx.fund(a1, "70", "t1")

	require.NoError(t, s.cycle(context.Background()))
	require.NoError(t, s.cycle(context.Background()))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"70"}, rec.balances["TRD"], "unchanged totals are not re-announced")
}

func TestScanner_ConsistencyErrorIsReturned(t *testing.T) {
	s, _, _, _ := newTestScanner(t)
	require.NoError(t, s.cycle(context.Background()))

	other, err := wallet.NewReferenceDeriver("tampered")
	require.NoError(t, err)
	s.deriver = other

	err = s.cycle(context.Background())
	var ce *wallet.ConsistencyError
	assert.ErrorAs(t, err, &ce)
}
