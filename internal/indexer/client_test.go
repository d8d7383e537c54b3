package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Klingon-tech/trd-wallet/internal/wallet"
	"github.com/Klingon-tech/trd-wallet/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, routes map[string]string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.Method+" "+r.URL.EscapedPath()]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", time.Second)
}

func TestClient_Height(t *testing.T) {
	c := newTestServer(t, map[string]string{"GET /api/height": `{"height": 1234}`})
	h, err := c.Height(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1234), h)
}

func TestClient_HeightInvalid(t *testing.T) {
	for name, body := range map[string]string{
		"missing":  `{}`,
		"string":   `{"height": "tall"}`,
		"negative": `{"height": -1}`,
		"garbage":  `not json`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestServer(t, map[string]string{"GET /api/height": body})
			_, err := c.Height(context.Background())
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestClient_Address(t *testing.T) {
	c := newTestServer(t, map[string]string{
		"GET /api/address/0_mpk__600000": `{"address":"0_mpk__600000","txids":["a","b"],"amounts":{"TRD":"600000","TOK":"3"}}`,
		"GET /api/address/1_mpk":         `{"address":"1_mpk","txids":null,"amounts":{}}`,
	})

	resp, err := c.Address(context.Background(), "0_mpk__600000")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, resp.Txids)
	bal := resp.Balances()
	assert.Equal(t, "600000", bal.Get("TRD").String())
	assert.Equal(t, "3", bal.Get("TOK").String())

	resp, err = c.Address(context.Background(), "1_mpk")
	require.NoError(t, err)
	assert.Nil(t, resp.Txids)
	assert.NotNil(t, resp.Balances())
}

func TestClient_AddressEscapesPath(t *testing.T) {
	c := newTestServer(t, map[string]string{
		"GET /api/address/a%2Fb": `{"address":"a/b","txids":[],"amounts":{}}`,
	})
	resp, err := c.Address(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, "a/b", resp.Address)
}

func TestClient_AddressMissingAmounts(t *testing.T) {
	c := newTestServer(t, map[string]string{
		"GET /api/address/x": `{"address":"x","txids":[]}`,
	})
	_, err := c.Address(context.Background(), "x")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestClient_Transaction(t *testing.T) {
	c := newTestServer(t, map[string]string{
		"GET /api/transaction/t1": `{
			"txid":"t1","networkFee":"50000","txDate":1700000000,"blockHeight":12,
			"inputs":[{"currencyCode":"TRD","address":"A","amount":"1000000"}],
			"outputs":[{"currencyCode":"TRD","address":"B","amount":"950000"}]}`,
	})
	resp, err := c.Transaction(context.Background(), "t1")
	require.NoError(t, err)

	d := resp.Detail()
	assert.Equal(t, "t1", d.TxID)
	assert.Equal(t, int64(1700000000), d.Date)
	assert.Equal(t, int64(12), d.BlockHeight)
	assert.Equal(t, "50000", d.NetworkFee.String())
	require.Len(t, d.Inputs, 1)
	assert.Equal(t, "B", d.Outputs[0].Address)
	assert.Equal(t, "950000", d.Outputs[0].Amount.String())
}

func TestClient_TransactionShapeErrors(t *testing.T) {
	tests := map[string]string{
		"no fee":        `{"txid":"t","inputs":[],"outputs":[]}`,
		"no inputs":     `{"txid":"t","networkFee":"1","outputs":[]}`,
		"io no address": `{"txid":"t","networkFee":"1","inputs":[],"outputs":[{"currencyCode":"TRD","amount":"1"}]}`,
		"io no amount":  `{"txid":"t","networkFee":"1","inputs":[{"currencyCode":"TRD","address":"A"}],"outputs":[]}`,
		"io no code":    `{"txid":"t","networkFee":"1","inputs":[],"outputs":[{"address":"A","amount":"1"}]}`,
		"bad amount":    `{"txid":"t","networkFee":"x","inputs":[],"outputs":[]}`,
		"no txid":       `{"networkFee":"1","inputs":[],"outputs":[]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			c := newTestServer(t, map[string]string{"GET /api/transaction/t": body})
			_, err := c.Transaction(context.Background(), "t")
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestClient_Spend(t *testing.T) {
	var got SpendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/spend", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"txid":"new","blockHeight":99,"txDate":1234}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	resp, err := c.Spend(context.Background(), SpendRequest{
		Inputs:  []wallet.TxIO{{CurrencyCode: "TRD", Address: "A", Amount: types.NewAmount(10)}},
		Outputs: []wallet.TxIO{{CurrencyCode: "TRD", Address: "B", Amount: types.NewAmount(5)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "new", resp.TxID)
	assert.Equal(t, int64(99), resp.BlockHeight)
	assert.Equal(t, int64(1234), resp.TxDate)
	require.Len(t, got.Inputs, 1)
	assert.Equal(t, "10", got.Inputs[0].Amount.String())
}

func TestClient_HTTPError(t *testing.T) {
	c := newTestServer(t, nil)
	_, err := c.Height(context.Background())

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.NotErrorIs(t, err, ErrInvalidResponse)
}

func TestClient_ContextCancelled(t *testing.T) {
	c := newTestServer(t, map[string]string{"GET /api/height": `{"height":1}`})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Height(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(srv.URL, 50*time.Millisecond)
	_, err := c.Height(context.Background())
	assert.Error(t, err)
}
