package wallet

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Klingon-tech/trd-wallet/pkg/types"
)

// State serializes every read and write of the wallet aggregate behind one
// mutex. Each exported method is a single critical section.
//
// Dirty tracking uses a mutation counter: every mutation bumps version, and a
// successful save records the version it wrote. The state is dirty while the
// two differ.
type State struct {
	mu        sync.Mutex
	snap      *Snapshot
	primary   string
	supported []string
	version   uint64
	saved     uint64
}

// NewState wraps snap. Supported currencies are the primary code followed by
// tokens. A nil snap is an error.
func NewState(snap *Snapshot, primary string, tokens []string) (*State, error) {
	if snap == nil {
		return nil, fmt.Errorf("nil snapshot")
	}
	if primary == "" {
		return nil, fmt.Errorf("empty primary currency")
	}
	supported := []string{primary}
	for _, t := range tokens {
		if t != "" && !contains(supported, t) {
			supported = append(supported, t)
		}
	}
	snap.normalize(primary)
	return &State{snap: snap, primary: primary, supported: supported}, nil
}

// LoadState decodes a stored snapshot and checks it belongs to masterPublicKey.
func LoadState(data []byte, masterPublicKey, primary string, tokens []string) (*State, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.MasterPublicKey != masterPublicKey {
		return nil, ErrKeyMismatch
	}
	return NewState(&snap, primary, tokens)
}

func (s *State) touch() {
	s.version++
}

// Primary returns the primary currency code.
func (s *State) Primary() string {
	return s.primary
}

// Supported returns the currency codes the wallet can track.
func (s *State) Supported() []string {
	return cloneStrings(s.supported)
}

// IsSupported reports whether code is a trackable currency.
func (s *State) IsSupported(code string) bool {
	return contains(s.supported, code)
}

// MasterPublicKey returns the key the wallet derives addresses from.
func (s *State) MasterPublicKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.MasterPublicKey
}

// Snapshot returns a deep copy of the aggregate.
func (s *State) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

// ── Persistence ─────────────────────────────────────────────────────────

// Dirty reports whether the aggregate changed since the last save.
func (s *State) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version != s.saved
}

// MarshalDirty serializes the aggregate if it is dirty. The returned version
// must be handed to MarkSaved once the bytes are durably written.
func (s *State) MarshalDirty() (data []byte, version uint64, dirty bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version == s.saved {
		return nil, s.version, false, nil
	}
	data, err = json.Marshal(s.snap)
	if err != nil {
		return nil, 0, true, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, s.version, true, nil
}

// Marshal serializes the aggregate unconditionally.
func (s *State) Marshal() ([]byte, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(s.snap)
	if err != nil {
		return nil, 0, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, s.version, nil
}

// MarkSaved records that the snapshot at version is durable. Mutations made
// after that snapshot was taken keep the state dirty.
func (s *State) MarkSaved(version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version > s.saved {
		s.saved = version
	}
}

// ── Height ──────────────────────────────────────────────────────────────

// BlockHeight returns the last observed chain height.
func (s *State) BlockHeight() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.BlockHeight
}

// SetBlockHeight stores h and reports whether it changed.
func (s *State) SetBlockHeight(h int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.BlockHeight == h {
		return false
	}
	s.snap.BlockHeight = h
	s.touch()
	return true
}

// ── Addresses ───────────────────────────────────────────────────────────

// UnusedAddressIndex returns the lowest index not known to be used.
func (s *State) UnusedAddressIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.UnusedAddressIndex
}

// PrepareScan makes sure records exist for indices [0, unused+gapLimit) and
// returns their addresses in index order. A stored record that differs from
// d's output is a *ConsistencyError.
func (s *State) PrepareScan(d Deriver, gapLimit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.snap.UnusedAddressIndex + gapLimit
	out := make([]string, n)
	grew := false
	for i := 0; i < n; i++ {
		addr, err := d.Derive(i)
		if err != nil {
			return nil, fmt.Errorf("derive address %d: %w", i, err)
		}
		if i < len(s.snap.Addresses) {
			if stored := s.snap.Addresses[i].Address; stored != addr {
				return nil, &ConsistencyError{Index: i, Stored: stored, Derived: addr}
			}
		} else {
			s.snap.Addresses = append(s.snap.Addresses, AddressRecord{Address: addr})
			grew = true
		}
		out[i] = addr
	}
	if grew {
		s.touch()
	}
	return out, nil
}

// ApplyAddress stores the indexer's view of the address at index, advances
// the unused index when the address is used or gap-listed, and queues txids
// not seen before. It returns the number of newly queued txids.
func (s *State) ApplyAddress(index int, txids []string, amounts Balances) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.snap.Addresses) {
		return 0, fmt.Errorf("address index %d out of range", index)
	}
	rec := &s.snap.Addresses[index]
	if txids == nil {
		txids = []string{}
	}
	if amounts == nil {
		amounts = Balances{}
	}
	rec.Txids = cloneStrings(txids)
	rec.Amounts = amounts.Clone()

	if (rec.Used() || contains(s.snap.GapLimitAddresses, rec.Address)) && index >= s.snap.UnusedAddressIndex {
		s.snap.UnusedAddressIndex = index + 1
	}

	queued := 0
	for _, txid := range txids {
		if s.knownTxid(txid) || contains(s.snap.TransactionsToFetch, txid) {
			continue
		}
		s.snap.TransactionsToFetch = append(s.snap.TransactionsToFetch, txid)
		queued++
	}
	s.touch()
	return queued, nil
}

func (s *State) knownTxid(txid string) bool {
	for _, txs := range s.snap.TransactionsByCurrency {
		for _, tx := range txs {
			if tx.TxID == txid {
				return true
			}
		}
	}
	return false
}

// RecomputeBalances rebuilds totalBalances from every resolved address,
// restricted to enabled tokens. It returns the currencies whose total changed
// along with their new value.
func (s *State) RecomputeBalances() Balances {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := Balances{s.primary: types.Zero}
	for _, code := range s.snap.EnabledTokens {
		totals[code] = types.Zero
	}
	for _, rec := range s.snap.Addresses {
		if !rec.Resolved() {
			continue
		}
		for code, amt := range rec.Amounts {
			if _, enabled := totals[code]; enabled {
				totals[code] = totals[code].Add(amt)
			}
		}
	}

	changed := Balances{}
	for code, amt := range totals {
		if !s.snap.TotalBalances.Get(code).Equal(amt) {
			changed[code] = amt
		}
	}
	for code := range s.snap.TotalBalances {
		if _, ok := totals[code]; !ok {
			changed[code] = types.Zero
		}
	}
	s.snap.TotalBalances = totals
	if len(changed) > 0 {
		s.touch()
	}
	return changed
}

// FreshAddress returns the address at the unused index.
func (s *State) FreshAddress(d Deriver) (string, error) {
	s.mu.Lock()
	idx := s.snap.UnusedAddressIndex
	s.mu.Unlock()
	return d.Derive(idx)
}

// AddGapLimitAddresses marks addrs as used by external agreement.
func (s *State) AddGapLimitAddresses(addrs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := false
	for _, a := range addrs {
		if a != "" && !contains(s.snap.GapLimitAddresses, a) {
			s.snap.GapLimitAddresses = append(s.snap.GapLimitAddresses, a)
			added = true
		}
	}
	if added {
		s.touch()
	}
}

// IsAddressUsed reports whether addr has transactions or is gap-listed.
func (s *State) IsAddressUsed(addr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.snap.Addresses {
		if rec.Address == addr && rec.Used() {
			return true
		}
	}
	return contains(s.snap.GapLimitAddresses, addr)
}

// ── Tokens & balances ───────────────────────────────────────────────────

// EnableTokens adds codes to the enabled set. Unknown codes are rejected and
// nothing is enabled.
func (s *State) EnableTokens(codes []string) error {
	for _, c := range codes {
		if !s.IsSupported(c) {
			return fmt.Errorf("%w: %s", ErrUnsupportedCurrency, c)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	added := false
	for _, c := range codes {
		if !contains(s.snap.EnabledTokens, c) {
			s.snap.EnabledTokens = append(s.snap.EnabledTokens, c)
			added = true
		}
	}
	if added {
		s.touch()
	}
	return nil
}

// EnabledTokens returns the enabled currency codes.
func (s *State) EnabledTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneStrings(s.snap.EnabledTokens)
}

// TokenEnabled reports whether code is enabled.
func (s *State) TokenEnabled(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return contains(s.snap.EnabledTokens, code)
}

// Balance returns the total for code. Unknown codes read as zero.
func (s *State) Balance(code string) types.Amount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.TotalBalances.Get(code)
}

// Balances returns a copy of all totals.
func (s *State) Balances() Balances {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.TotalBalances.Clone()
}

// ── Transactions ────────────────────────────────────────────────────────

// PendingTxids returns a copy of the fetch queue.
func (s *State) PendingTxids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneStrings(s.snap.TransactionsToFetch)
}

// ApplyTransaction reconciles a resolved transaction against the wallet's
// addresses. Every supported currency with wallet-owned inputs or outputs
// gets its ledger entry inserted or updated. The txid leaves the fetch
// queue either way. The changed entries are returned as copies.
func (s *State) ApplyTransaction(d TxDetail) []*Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	owned := make(map[string]bool, len(s.snap.Addresses))
	for _, rec := range s.snap.Addresses {
		owned[rec.Address] = true
	}

	var changed []*Transaction
	for _, code := range s.supported {
		spent, received := types.Zero, types.Zero
		var receivers []string
		for _, in := range d.Inputs {
			if in.CurrencyCode == code && owned[in.Address] {
				spent = spent.Add(in.Amount)
			}
		}
		for _, out := range d.Outputs {
			if out.CurrencyCode == code && owned[out.Address] {
				received = received.Add(out.Amount)
				if !contains(receivers, out.Address) {
					receivers = append(receivers, out.Address)
				}
			}
		}
		if spent.IsZero() && received.IsZero() {
			continue
		}
		if receivers == nil {
			receivers = []string{}
		}
		tx := &Transaction{
			TxID:                  d.TxID,
			Timestamp:             d.Date,
			CurrencyCode:          code,
			BlockHeight:           d.BlockHeight,
			NetNativeAmount:       received.Sub(spent),
			NetworkFee:            d.NetworkFee,
			OwnedReceiveAddresses: receivers,
			SigningStatus:         SigningStatusSigned,
			ChainParams: ChainParams{
				Inputs:  append([]TxIO{}, d.Inputs...),
				Outputs: append([]TxIO{}, d.Outputs...),
				Fee:     d.NetworkFee,
			},
		}
		s.upsert(tx)
		changed = append(changed, tx.Clone())
	}

	s.removePending(d.TxID)
	s.touch()
	return changed
}

// AddTransaction stores tx under its currency, replacing an entry with the
// same txid.
func (s *State) AddTransaction(tx *Transaction) error {
	if tx == nil || tx.TxID == "" {
		return fmt.Errorf("transaction has no txid")
	}
	if tx.CurrencyCode == "" {
		return fmt.Errorf("transaction %s has no currency code", tx.TxID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsert(tx.Clone())
	s.touch()
	return nil
}

func (s *State) upsert(tx *Transaction) {
	list := s.snap.TransactionsByCurrency[tx.CurrencyCode]
	for i, existing := range list {
		if existing.TxID == tx.TxID {
			list[i] = tx
			sortNewestFirst(list)
			return
		}
	}
	list = append(list, tx)
	sortNewestFirst(list)
	s.snap.TransactionsByCurrency[tx.CurrencyCode] = list
}

func (s *State) removePending(txid string) {
	q := s.snap.TransactionsToFetch
	for i, id := range q {
		if id == txid {
			s.snap.TransactionsToFetch = append(q[:i:i], q[i+1:]...)
			return
		}
	}
}

// TransactionCount returns the number of ledger entries for code.
func (s *State) TransactionCount(code string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snap.TransactionsByCurrency[code])
}

// Transactions returns up to count entries for code starting at start,
// newest first. A start past the end clamps to the last entry and a
// non-positive count means "to the end".
func (s *State) Transactions(code string, start, count int) []*Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.snap.TransactionsByCurrency[code]
	if len(list) == 0 {
		return []*Transaction{}
	}
	if start < 0 {
		start = 0
	}
	if start >= len(list) {
		start = len(list) - 1
	}
	end := len(list)
	if count > 0 && start+count < end {
		end = start + count
	}
	out := make([]*Transaction, 0, end-start)
	for _, tx := range list[start:end] {
		out = append(out, tx.Clone())
	}
	return out
}
