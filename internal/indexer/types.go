package indexer

import (
	"github.com/Klingon-tech/trd-wallet/internal/wallet"
	"github.com/Klingon-tech/trd-wallet/pkg/types"
)

// HeightResponse is the body of GET height.
type HeightResponse struct {
	Height *int64 `json:"height" validate:"required,gte=0"`
}

// AddressResponse is the body of GET address/{address}. Txids may be null
// for an address with no history.
type AddressResponse struct {
	Address string                  `json:"address" validate:"required"`
	Txids   []string                `json:"txids"`
	Amounts map[string]types.Amount `json:"amounts" validate:"required"`
}

// Balances returns the amounts as wallet balances.
func (r *AddressResponse) Balances() wallet.Balances {
	out := make(wallet.Balances, len(r.Amounts))
	for k, v := range r.Amounts {
		out[k] = v
	}
	return out
}

// TxIO is one input or output in a transaction response.
type TxIO struct {
	CurrencyCode string        `json:"currencyCode" validate:"required"`
	Address      string        `json:"address" validate:"required"`
	Amount       *types.Amount `json:"amount" validate:"required"`
}

// TransactionResponse is the body of GET transaction/{txid}.
type TransactionResponse struct {
	TxID        string        `json:"txid" validate:"required"`
	NetworkFee  *types.Amount `json:"networkFee" validate:"required"`
	TxDate      int64         `json:"txDate"`
	BlockHeight int64         `json:"blockHeight"`
	Inputs      []TxIO        `json:"inputs" validate:"required,dive"`
	Outputs     []TxIO        `json:"outputs" validate:"required,dive"`
}

// Detail converts the response into the wallet's transaction detail.
func (r *TransactionResponse) Detail() wallet.TxDetail {
	conv := func(ios []TxIO) []wallet.TxIO {
		out := make([]wallet.TxIO, len(ios))
		for i, io := range ios {
			out[i] = wallet.TxIO{CurrencyCode: io.CurrencyCode, Address: io.Address, Amount: *io.Amount}
		}
		return out
	}
	return wallet.TxDetail{
		TxID:        r.TxID,
		NetworkFee:  *r.NetworkFee,
		Date:        r.TxDate,
		BlockHeight: r.BlockHeight,
		Inputs:      conv(r.Inputs),
		Outputs:     conv(r.Outputs),
	}
}

// SpendRequest is the body of POST spend.
type SpendRequest struct {
	Inputs  []wallet.TxIO `json:"inputs"`
	Outputs []wallet.TxIO `json:"outputs"`
}

// SpendResponse is the body returned by POST spend.
type SpendResponse struct {
	TxID        string `json:"txid" validate:"required"`
	BlockHeight int64  `json:"blockHeight"`
	TxDate      int64  `json:"txDate"`
}
