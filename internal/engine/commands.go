package engine

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/trd-wallet/internal/indexer"
	"github.com/Klingon-tech/trd-wallet/internal/wallet"
	"github.com/Klingon-tech/trd-wallet/pkg/types"
)

// Status summarizes the engine for operators.
type Status struct {
	Running             bool     `json:"running"`
	BlockHeight         int64    `json:"blockHeight"`
	UnusedAddressIndex  int      `json:"unusedAddressIndex"`
	PendingTransactions int      `json:"pendingTransactions"`
	AddressesChecked    bool     `json:"addressesChecked"`
	Dirty               bool     `json:"dirty"`
	EnabledTokens       []string `json:"enabledTokens"`
}

// Capabilities lists which optional operations the engine implements.
type Capabilities struct {
	Sign          bool `json:"sign"`
	DisableTokens bool `json:"disableTokens"`
	CustomTokens  bool `json:"customTokens"`
	Resync        bool `json:"resync"`
	DumpData      bool `json:"dumpData"`
	DisplaySeeds  bool `json:"displaySeeds"`
}

// resolveCode maps "" to the primary currency and rejects unknown codes.
func (e *Engine) resolveCode(code string) (string, error) {
	if code == "" {
		return e.cfg.Primary, nil
	}
	if !e.state.IsSupported(code) {
		return "", fmt.Errorf("%w: %s", wallet.ErrUnsupportedCurrency, code)
	}
	return code, nil
}

// BlockHeight returns the last observed chain height.
func (e *Engine) BlockHeight() int64 {
	return e.state.BlockHeight()
}

// EnableTokens enables tracking of codes.
func (e *Engine) EnableTokens(codes []string) error {
	return e.state.EnableTokens(codes)
}

// TokenStatus reports whether code is enabled.
func (e *Engine) TokenStatus(code string) bool {
	return e.state.TokenEnabled(code)
}

// EnabledTokens returns the enabled currency codes.
func (e *Engine) EnabledTokens() []string {
	return e.state.EnabledTokens()
}

// Balance returns the total balance for code ("" for primary).
func (e *Engine) Balance(code string) (types.Amount, error) {
	code, err := e.resolveCode(code)
	if err != nil {
		return types.Amount{}, err
	}
	return e.state.Balance(code), nil
}

// TransactionCount returns the number of ledger entries for code.
func (e *Engine) TransactionCount(code string) (int, error) {
	code, err := e.resolveCode(code)
	if err != nil {
		return 0, err
	}
	return e.state.TransactionCount(code), nil
}

// Transactions returns a page of ledger entries for code, newest first.
func (e *Engine) Transactions(code string, start, count int) ([]*wallet.Transaction, error) {
	code, err := e.resolveCode(code)
	if err != nil {
		return nil, err
	}
	return e.state.Transactions(code, start, count), nil
}

// FreshAddress returns the first unused receive address.
func (e *Engine) FreshAddress() (string, error) {
	return e.state.FreshAddress(e.deriver)
}

// AddGapLimitAddresses marks addrs as used.
func (e *Engine) AddGapLimitAddresses(addrs []string) {
	e.state.AddGapLimitAddresses(addrs)
}

// IsAddressUsed reports whether addr has history or is gap-listed.
func (e *Engine) IsAddressUsed(addr string) bool {
	return e.state.IsAddressUsed(addr)
}

// MakeSpend builds an unsigned spend proposal.
func (e *Engine) MakeSpend(req wallet.SpendRequest) (*wallet.Transaction, error) {
	tx, err := e.state.BuildSpend(req, e.deriver, e.fees)
	if err != nil {
		return nil, err
	}
	e.logger.Debug().
		Str("proposal", tx.ProposalID).
		Int("inputs", len(tx.ChainParams.Inputs)).
		Int("outputs", len(tx.ChainParams.Outputs)).
		Str("fee", tx.ChainParams.Fee.String()).
		Msg("Spend proposal built")
	return tx, nil
}

// SignTx signs a copy of tx with the configured signer.
func (e *Engine) SignTx(tx *wallet.Transaction) (*wallet.Transaction, error) {
	if e.signer == nil {
		return nil, fmt.Errorf("sign: %w", ErrNotSupported)
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: nil transaction", wallet.ErrInvalidSpend)
	}
	signed := tx.Clone()
	if err := e.signer.Sign(signed); err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return signed, nil
}

// BroadcastTx submits tx to the indexer and returns a copy carrying the
// txid, block height and date it reported.
func (e *Engine) BroadcastTx(ctx context.Context, tx *wallet.Transaction) (*wallet.Transaction, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: nil transaction", wallet.ErrInvalidSpend)
	}
	resp, err := e.idx.Spend(ctx, indexer.SpendRequest{
		Inputs:  tx.ChainParams.Inputs,
		Outputs: tx.ChainParams.Outputs,
	})
	if err != nil {
		e.logger.Error().Err(err).Str("proposal", tx.ProposalID).Msg("Broadcast failed")
		return nil, fmt.Errorf("broadcast: %w", err)
	}
	out := tx.Clone()
	out.TxID = resp.TxID
	out.BlockHeight = resp.BlockHeight
	out.Timestamp = resp.TxDate
	e.logger.Info().Str("txid", out.TxID).Msg("Transaction broadcast")
	return out, nil
}

// SaveTx records a broadcast transaction in the local ledger.
func (e *Engine) SaveTx(tx *wallet.Transaction) error {
	if tx != nil && tx.CurrencyCode == "" {
		tx = tx.Clone()
		tx.CurrencyCode = e.cfg.Primary
	}
	return e.state.AddTransaction(tx)
}

// Status returns a summary of the engine.
func (e *Engine) Status() Status {
	return Status{
		Running:             e.Running(),
		BlockHeight:         e.state.BlockHeight(),
		UnusedAddressIndex:  e.state.UnusedAddressIndex(),
		PendingTransactions: len(e.state.PendingTxids()),
		AddressesChecked:    e.scanner.addressesChecked(),
		Dirty:               e.state.Dirty(),
		EnabledTokens:       e.state.EnabledTokens(),
	}
}

// Capabilities reports the optional operations available.
func (e *Engine) Capabilities() Capabilities {
	return Capabilities{Sign: e.signer != nil}
}

// DisableTokens is not supported.
func (e *Engine) DisableTokens([]string) error {
	return fmt.Errorf("disable tokens: %w", ErrNotSupported)
}

// AddCustomToken is not supported.
func (e *Engine) AddCustomToken(string) error {
	return fmt.Errorf("add custom token: %w", ErrNotSupported)
}

// Resync is not supported.
func (e *Engine) Resync() error {
	return fmt.Errorf("resync: %w", ErrNotSupported)
}

// DumpData is not supported.
func (e *Engine) DumpData() ([]byte, error) {
	return nil, fmt.Errorf("dump data: %w", ErrNotSupported)
}

// DisplayPrivateSeed is not supported; the engine never holds private keys.
func (e *Engine) DisplayPrivateSeed() (string, error) {
	return "", fmt.Errorf("display private seed: %w", ErrNotSupported)
}

// DisplayPublicSeed is not supported.
func (e *Engine) DisplayPublicSeed() (string, error) {
	return "", fmt.Errorf("display public seed: %w", ErrNotSupported)
}
