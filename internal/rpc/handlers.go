package rpc

import (
	"context"
	"errors"

	"github.com/Klingon-tech/trd-wallet/internal/engine"
	"github.com/Klingon-tech/trd-wallet/internal/indexer"
	"github.com/Klingon-tech/trd-wallet/internal/wallet"
)

// engineError maps an engine error onto a JSON-RPC error.
func engineError(err error) *Error {
	var httpErr *indexer.HTTPError
	switch {
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return &Error{Code: CodeInsufficientFunds, Message: err.Error()}
	case errors.Is(err, engine.ErrNotSupported):
		return &Error{Code: CodeNotSupported, Message: err.Error()}
	case errors.Is(err, wallet.ErrInvalidSpend), errors.Is(err, wallet.ErrUnsupportedCurrency):
		return &Error{Code: CodeInvalidParams, Message: err.Error()}
	case errors.As(err, &httpErr):
		return &Error{Code: CodeIndexerError, Message: err.Error(), Data: httpErr.StatusCode}
	case errors.Is(err, indexer.ErrInvalidResponse):
		return &Error{Code: CodeIndexerError, Message: err.Error()}
	default:
		return &Error{Code: CodeInternalError, Message: err.Error()}
	}
}

// currencyCode returns code, or the primary currency when code is empty.
func (s *Server) currencyCode(code string) string {
	if code == "" {
		return s.engine.State().Primary()
	}
	return code
}

// ── State queries ───────────────────────────────────────────────────────

func (s *Server) handleGetBlockHeight(_ *Request) (interface{}, *Error) {
	return &BlockHeightResult{Height: s.engine.BlockHeight()}, nil
}

func (s *Server) handleGetTokenStatus(req *Request) (interface{}, *Error) {
	var params CurrencyParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.CurrencyCode == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "currencyCode is required"}
	}
	return &TokenStatusResult{
		CurrencyCode: params.CurrencyCode,
		Enabled:      s.engine.TokenStatus(params.CurrencyCode),
	}, nil
}

func (s *Server) handleGetBalance(req *Request) (interface{}, *Error) {
	var params CurrencyParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}
	bal, err := s.engine.Balance(params.CurrencyCode)
	if err != nil {
		return nil, engineError(err)
	}
	return &BalanceResult{
		CurrencyCode: s.currencyCode(params.CurrencyCode),
		Balance:      bal,
	}, nil
}

func (s *Server) handleGetTransactionCount(req *Request) (interface{}, *Error) {
	var params CurrencyParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}
	n, err := s.engine.TransactionCount(params.CurrencyCode)
	if err != nil {
		return nil, engineError(err)
	}
	return &TransactionCountResult{
		CurrencyCode: s.currencyCode(params.CurrencyCode),
		Count:        n,
	}, nil
}

func (s *Server) handleGetTransactions(req *Request) (interface{}, *Error) {
	var params TransactionsParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}
	txs, err := s.engine.Transactions(params.CurrencyCode, params.StartIndex, params.Count)
	if err != nil {
		return nil, engineError(err)
	}
	if txs == nil {
		txs = []*wallet.Transaction{}
	}
	return &TransactionsResult{
		CurrencyCode: s.currencyCode(params.CurrencyCode),
		Transactions: txs,
	}, nil
}

// ── Addresses ───────────────────────────────────────────────────────────

func (s *Server) handleGetFreshAddress(_ *Request) (interface{}, *Error) {
	addr, err := s.engine.FreshAddress()
	if err != nil {
		return nil, engineError(err)
	}
	return &AddressResult{Address: addr}, nil
}

func (s *Server) handleAddGapLimitAddresses(req *Request) (interface{}, *Error) {
	var params AddressesParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if len(params.Addresses) == 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "addresses is required"}
	}
	s.engine.AddGapLimitAddresses(params.Addresses)
	return &SuccessResult{Success: true}, nil
}

func (s *Server) handleIsAddressUsed(req *Request) (interface{}, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Address == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "address is required"}
	}
	return &AddressUsedResult{
		Address: params.Address,
		Used:    s.engine.IsAddressUsed(params.Address),
	}, nil
}

// ── Tokens ──────────────────────────────────────────────────────────────

func (s *Server) handleEnableTokens(req *Request) (interface{}, *Error) {
	var params TokensParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if err := s.engine.EnableTokens(params.Tokens); err != nil {
		return nil, engineError(err)
	}
	return &TokensResult{Enabled: s.engine.EnabledTokens()}, nil
}

// ── Spends ──────────────────────────────────────────────────────────────

func (s *Server) handleMakeSpend(req *Request) (interface{}, *Error) {
	var params wallet.SpendRequest
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	tx, err := s.engine.MakeSpend(params)
	if err != nil {
		return nil, engineError(err)
	}
	return tx, nil
}

func (s *Server) handleSignTx(req *Request) (interface{}, *Error) {
	tx, rpcErr := transactionParam(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	signed, err := s.engine.SignTx(tx)
	if err != nil {
		return nil, engineError(err)
	}
	return signed, nil
}

func (s *Server) handleBroadcastTx(ctx context.Context, req *Request) (interface{}, *Error) {
	tx, rpcErr := transactionParam(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	out, err := s.engine.BroadcastTx(ctx, tx)
	if err != nil {
		return nil, engineError(err)
	}
	return out, nil
}

func (s *Server) handleSaveTx(req *Request) (interface{}, *Error) {
	tx, rpcErr := transactionParam(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.SaveTx(tx); err != nil {
		return nil, engineError(err)
	}
	return &SuccessResult{Success: true}, nil
}

func transactionParam(req *Request) (*wallet.Transaction, *Error) {
	var params TransactionParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Transaction == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "transaction is required"}
	}
	return params.Transaction, nil
}
