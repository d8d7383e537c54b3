package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Klingon-tech/trd-wallet/internal/indexer"
	"github.com/Klingon-tech/trd-wallet/internal/log"
	"github.com/Klingon-tech/trd-wallet/internal/storage"
	"github.com/Klingon-tech/trd-wallet/internal/wallet"
	"github.com/Klingon-tech/trd-wallet/pkg/types"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/stretchr/testify/require"
)

func init() {
	log.Discard()
}

// fakeIndexer serves canned answers. Addresses it has no entry for resolve
// as empty.
type fakeIndexer struct {
	mu        sync.Mutex
	height    int64
	heightErr error
	addresses map[string]*indexer.AddressResponse
	addrErr   map[string]error
	wrongAddr map[string]string
	txs       map[string]*indexer.TransactionResponse
	txErr     map[string]error
	spends    []indexer.SpendRequest
	queried   map[string]int
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{
		addresses: make(map[string]*indexer.AddressResponse),
		addrErr:   make(map[string]error),
		wrongAddr: make(map[string]string),
		txs:       make(map[string]*indexer.TransactionResponse),
		txErr:     make(map[string]error),
		queried:   make(map[string]int),
	}
}

func (f *fakeIndexer) Height(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.height, f.heightErr
}

func (f *fakeIndexer) setHeight(h int64) {
	f.mu.Lock()
	f.height = h
	f.mu.Unlock()
}

func (f *fakeIndexer) Address(ctx context.Context, addr string) (*indexer.AddressResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queried[addr]++
	if err := f.addrErr[addr]; err != nil {
		return nil, err
	}
	if other, ok := f.wrongAddr[addr]; ok {
		return &indexer.AddressResponse{Address: other, Amounts: map[string]types.Amount{}}, nil
	}
	if resp, ok := f.addresses[addr]; ok {
		cp := *resp
		return &cp, nil
	}
	return &indexer.AddressResponse{Address: addr, Amounts: map[string]types.Amount{}}, nil
}

// fund registers addr as holding amount TRD, touched by txids.
func (f *fakeIndexer) fund(addr, amount string, txids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addresses[addr] = &indexer.AddressResponse{
		Address: addr,
		Txids:   txids,
		Amounts: map[string]types.Amount{"TRD": types.MustAmount(amount)},
	}
}

func (f *fakeIndexer) setAddrErr(addr string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.addrErr, addr)
		return
	}
	f.addrErr[addr] = err
}

func (f *fakeIndexer) Transaction(ctx context.Context, txid string) (*indexer.TransactionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.txErr[txid]; err != nil {
		return nil, err
	}
	resp, ok := f.txs[txid]
	if !ok {
		return nil, &indexer.HTTPError{StatusCode: 404, Body: "not found"}
	}
	return resp, nil
}

// receive registers txid as paying amount TRD to addr at date.
func (f *fakeIndexer) receive(txid, addr, amount string, date int64) {
	amt := types.MustAmount(amount)
	fee := types.NewAmount(0)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs[txid] = &indexer.TransactionResponse{
		TxID:       txid,
		NetworkFee: &fee,
		TxDate:     date,
		Inputs:     []indexer.TxIO{},
		Outputs:    []indexer.TxIO{{CurrencyCode: "TRD", Address: addr, Amount: &amt}},
	}
}

func (f *fakeIndexer) setTxErr(txid string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.txErr, txid)
		return
	}
	f.txErr[txid] = err
}

func (f *fakeIndexer) Spend(ctx context.Context, body indexer.SpendRequest) (*indexer.SpendResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spends = append(f.spends, body)
	return &indexer.SpendResponse{TxID: fmt.Sprintf("broadcast-%d", len(f.spends)), BlockHeight: f.height, TxDate: 1700000000}, nil
}

func (f *fakeIndexer) distinctQueried() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queried)
}

// recorder captures notifications.
type recorder struct {
	mu       sync.Mutex
	heights  []int64
	progress []float64
	batches  [][]*wallet.Transaction
	balances map[string][]string
}

func newRecorder() *recorder {
	return &recorder{balances: make(map[string][]string)}
}

func (r *recorder) OnBlockHeightChanged(h int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heights = append(r.heights, h)
}

func (r *recorder) OnAddressesChecked(p float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *recorder) OnTransactionsChanged(txs []*wallet.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, txs)
}

func (r *recorder) OnBalanceChanged(code string, bal types.Amount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[code] = append(r.balances[code], bal.String())
}

func (r *recorder) completions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.progress {
		if p == 1 {
			n++
		}
	}
	return n
}

func (r *recorder) heightEvents() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.heights...)
}

func (r *recorder) batchTxids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, b := range r.batches {
		for _, tx := range b {
			ids = append(ids, tx.TxID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Distinct intervals let the ticker factory hand each task its own Force
// ticker.
const (
	testHeightInterval  = time.Hour
	testAddressInterval = 2 * time.Hour
	testTxInterval      = 3 * time.Hour
	testSaveInterval    = 4 * time.Hour
)

type harness struct {
	eng   *Engine
	idx   *fakeIndexer
	rec   *recorder
	db    storage.DB
	ticks map[time.Duration]*ticker.Force
	deriv wallet.Deriver
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Tokens = []string{"TOK"}
	cfg.HeightInterval = testHeightInterval
	cfg.AddressInterval = testAddressInterval
	cfg.TransactionInterval = testTxInterval
	cfg.SaveInterval = testSaveInterval
	return cfg
}

func newHarness(t *testing.T, db storage.DB, opts ...Option) *harness {
	t.Helper()
	if db == nil {
		db = storage.NewMemory()
	}
	h := &harness{
		idx:   newFakeIndexer(),
		rec:   newRecorder(),
		db:    db,
		ticks: make(map[time.Duration]*ticker.Force),
	}
	for _, d := range []time.Duration{testHeightInterval, testAddressInterval, testTxInterval, testSaveInterval} {
		h.ticks[d] = ticker.NewForce(d)
	}

	d, err := wallet.NewReferenceDeriver("mpk")
	require.NoError(t, err)
	h.deriv = d

	opts = append([]Option{
		WithNotifier(h.rec),
		withTickerFactory(func(d time.Duration) ticker.Ticker { return h.ticks[d] }),
	}, opts...)
	eng, err := New(testConfig(), "mpk", d, h.idx, wallet.NewStore(db, "", wallet.DefaultParams()), opts...)
	require.NoError(t, err)
	h.eng = eng
	return h
}

// tick forces one tick on the task with interval d. When it returns, every
// earlier cycle of that task has finished.
func (h *harness) tick(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case h.ticks[d].Force <- time.Now():
	case <-time.After(5 * time.Second):
		t.Fatalf("task with interval %v did not accept tick", d)
	}
}

func (h *harness) addr(t *testing.T, i int) string {
	t.Helper()
	a, err := h.deriv.Derive(i)
	require.NoError(t, err)
	return a
}
