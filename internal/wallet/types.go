// Package wallet holds the local mirror of a TRD wallet: derived addresses,
// per-currency balances, the transaction ledger and the pending fetch queue.
package wallet

import (
	"sort"

	"github.com/Klingon-tech/trd-wallet/pkg/types"
)

const (
	// PrimaryCurrency is the chain's native currency code.
	PrimaryCurrency = "TRD"

	// GapLimit is the number of unused addresses probed past the last used one.
	GapLimit = 10

	// SigningStatusUnsigned marks a spend proposal awaiting a signer.
	SigningStatusUnsigned = "unsigned"
	// SigningStatusSigned marks a proposal carrying a signature.
	SigningStatusSigned = "signed"
)

// Balances maps a currency code to an amount. Missing codes read as zero.
type Balances map[string]types.Amount

// Get returns the amount for code, or zero.
func (b Balances) Get(code string) types.Amount {
	if b == nil {
		return types.Zero
	}
	return b[code]
}

// Clone returns a copy of b. A nil map stays nil.
func (b Balances) Clone() Balances {
	if b == nil {
		return nil
	}
	out := make(Balances, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// AddressRecord is the indexer's view of one derived address. A record whose
// Amounts is nil has not been resolved yet.
type AddressRecord struct {
	Address string   `json:"address"`
	Txids   []string `json:"txids"`
	Amounts Balances `json:"amounts"`
}

// Resolved reports whether the indexer has answered for this address.
func (r AddressRecord) Resolved() bool {
	return r.Amounts != nil
}

// Used reports whether any transaction touched the address.
func (r AddressRecord) Used() bool {
	return len(r.Txids) > 0
}

// TxIO is one input or output of a transaction.
type TxIO struct {
	CurrencyCode string       `json:"currencyCode"`
	Address      string       `json:"address"`
	Amount       types.Amount `json:"amount"`
}

// ChainParams carries the chain-specific body of a transaction.
type ChainParams struct {
	Inputs  []TxIO       `json:"inputs"`
	Outputs []TxIO       `json:"outputs"`
	Fee     types.Amount `json:"fee"`
}

// Transaction is a ledger entry from the wallet's point of view, or an
// unsigned spend proposal when TxID is empty.
type Transaction struct {
	TxID                  string       `json:"txid"`
	Timestamp             int64        `json:"timestamp"`
	CurrencyCode          string       `json:"currencyCode"`
	BlockHeight           int64        `json:"blockHeight"`
	NetNativeAmount       types.Amount `json:"netNativeAmount"`
	NetworkFee            types.Amount `json:"networkFee"`
	OwnedReceiveAddresses []string     `json:"ownedReceiveAddresses"`
	SigningStatus         string       `json:"signingStatus"`
	Signature             string       `json:"signature,omitempty"`
	ChainParams           ChainParams  `json:"chainParams"`
	ProposalID            string       `json:"proposalId,omitempty"`
}

// Clone returns a deep copy of tx.
func (tx *Transaction) Clone() *Transaction {
	if tx == nil {
		return nil
	}
	c := *tx
	c.OwnedReceiveAddresses = cloneStrings(tx.OwnedReceiveAddresses)
	c.ChainParams.Inputs = append([]TxIO(nil), tx.ChainParams.Inputs...)
	c.ChainParams.Outputs = append([]TxIO(nil), tx.ChainParams.Outputs...)
	return &c
}

// TxDetail is a resolved transaction as reported by the indexer.
type TxDetail struct {
	TxID        string
	NetworkFee  types.Amount
	Date        int64
	BlockHeight int64
	Inputs      []TxIO
	Outputs     []TxIO
}

// Snapshot is the serializable wallet aggregate.
type Snapshot struct {
	BlockHeight            int64                     `json:"blockHeight"`
	MasterPublicKey        string                    `json:"masterPublicKey"`
	TotalBalances          Balances                  `json:"totalBalances"`
	EnabledTokens          []string                  `json:"enabledTokens"`
	GapLimitAddresses      []string                  `json:"gapLimitAddresses"`
	TransactionsByCurrency map[string][]*Transaction `json:"transactionsByCurrency"`
	TransactionsToFetch    []string                  `json:"transactionsToFetch"`
	Addresses              []AddressRecord           `json:"addresses"`
	UnusedAddressIndex     int                       `json:"unusedAddressIndex"`
}

// NewSnapshot returns the default aggregate for a fresh wallet.
func NewSnapshot(masterPublicKey, primary string) *Snapshot {
	return &Snapshot{
		MasterPublicKey:        masterPublicKey,
		TotalBalances:          Balances{primary: types.Zero},
		EnabledTokens:          []string{primary},
		GapLimitAddresses:      []string{},
		TransactionsByCurrency: map[string][]*Transaction{},
		TransactionsToFetch:    []string{},
		Addresses:              []AddressRecord{},
	}
}

// Clone returns a deep copy of s.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.TotalBalances = s.TotalBalances.Clone()
	c.EnabledTokens = cloneStrings(s.EnabledTokens)
	c.GapLimitAddresses = cloneStrings(s.GapLimitAddresses)
	c.TransactionsToFetch = cloneStrings(s.TransactionsToFetch)
	c.TransactionsByCurrency = make(map[string][]*Transaction, len(s.TransactionsByCurrency))
	for code, txs := range s.TransactionsByCurrency {
		cp := make([]*Transaction, len(txs))
		for i, tx := range txs {
			cp[i] = tx.Clone()
		}
		c.TransactionsByCurrency[code] = cp
	}
	c.Addresses = make([]AddressRecord, len(s.Addresses))
	for i, r := range s.Addresses {
		c.Addresses[i] = AddressRecord{
			Address: r.Address,
			Txids:   cloneStrings(r.Txids),
			Amounts: r.Amounts.Clone(),
		}
	}
	return &c
}

// normalize fills nil collections left by older or hand-written snapshots.
func (s *Snapshot) normalize(primary string) {
	if s.TotalBalances == nil {
		s.TotalBalances = Balances{}
	}
	if _, ok := s.TotalBalances[primary]; !ok {
		s.TotalBalances[primary] = types.Zero
	}
	if !contains(s.EnabledTokens, primary) {
		s.EnabledTokens = append([]string{primary}, s.EnabledTokens...)
	}
	if s.GapLimitAddresses == nil {
		s.GapLimitAddresses = []string{}
	}
	if s.TransactionsByCurrency == nil {
		s.TransactionsByCurrency = map[string][]*Transaction{}
	}
	if s.TransactionsToFetch == nil {
		s.TransactionsToFetch = []string{}
	}
	if s.Addresses == nil {
		s.Addresses = []AddressRecord{}
	}
}

// sortNewestFirst orders txs by timestamp descending. Ties keep their order.
func sortNewestFirst(txs []*Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp > txs[j].Timestamp
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}
