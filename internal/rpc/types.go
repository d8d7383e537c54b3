package rpc

import (
	"github.com/Klingon-tech/trd-wallet/internal/wallet"
	"github.com/Klingon-tech/trd-wallet/pkg/types"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// Application codes.
	CodeInsufficientFunds = -32001
	CodeNotSupported      = -32002
	CodeIndexerError      = -32003
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// CurrencyParam selects a currency. An empty code means the primary currency.
type CurrencyParam struct {
	CurrencyCode string `json:"currencyCode,omitempty"`
}

// TokensParam is used by wallet_enableTokens.
type TokensParam struct {
	Tokens []string `json:"tokens"`
}

// TransactionsParam is used by wallet_getTransactions. Count <= 0 returns
// everything from StartIndex on.
type TransactionsParam struct {
	CurrencyCode string `json:"currencyCode,omitempty"`
	StartIndex   int    `json:"startIndex"`
	Count        int    `json:"count"`
}

// AddressParam is used by wallet_isAddressUsed.
type AddressParam struct {
	Address string `json:"address"`
}

// AddressesParam is used by wallet_addGapLimitAddresses.
type AddressesParam struct {
	Addresses []string `json:"addresses"`
}

// TransactionParam carries a transaction for wallet_signTx,
// wallet_broadcastTx and wallet_saveTx.
type TransactionParam struct {
	Transaction *wallet.Transaction `json:"transaction"`
}

// ── Result types ────────────────────────────────────────────────────────

// BlockHeightResult is returned by wallet_getBlockHeight.
type BlockHeightResult struct {
	Height int64 `json:"height"`
}

// TokensResult lists the enabled currency codes.
type TokensResult struct {
	Enabled []string `json:"enabled"`
}

// TokenStatusResult is returned by wallet_getTokenStatus.
type TokenStatusResult struct {
	CurrencyCode string `json:"currencyCode"`
	Enabled      bool   `json:"enabled"`
}

// BalanceResult is returned by wallet_getBalance.
type BalanceResult struct {
	CurrencyCode string       `json:"currencyCode"`
	Balance      types.Amount `json:"balance"`
}

// TransactionCountResult is returned by wallet_getTransactionCount.
type TransactionCountResult struct {
	CurrencyCode string `json:"currencyCode"`
	Count        int    `json:"count"`
}

// TransactionsResult is returned by wallet_getTransactions.
type TransactionsResult struct {
	CurrencyCode string                `json:"currencyCode"`
	Transactions []*wallet.Transaction `json:"transactions"`
}

// AddressResult is returned by wallet_getFreshAddress.
type AddressResult struct {
	Address string `json:"address"`
}

// AddressUsedResult is returned by wallet_isAddressUsed.
type AddressUsedResult struct {
	Address string `json:"address"`
	Used    bool   `json:"used"`
}

// SuccessResult acknowledges a command with no other output.
type SuccessResult struct {
	Success bool `json:"success"`
}
