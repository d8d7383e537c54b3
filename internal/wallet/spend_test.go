package wallet

import (
	"testing"

	"github.com/Klingon-tech/trd-wallet/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fundedState returns a state whose first addresses hold the given TRD
// amounts, with totals recomputed.
func fundedState(t *testing.T, amounts ...string) (*State, Deriver) {
	t.Helper()
	s, d := newTestState(t, "TOK")
	_, err := s.PrepareScan(d, GapLimit)
	require.NoError(t, err)
	for i, a := range amounts {
		_, err := s.ApplyAddress(i, []string{"fund"}, Balances{"TRD": amt(a)})
		require.NoError(t, err)
	}
	s.RecomputeBalances()
	return s, d
}

func sumIO(ios []TxIO, code string) types.Amount {
	total := types.Zero
	for _, io := range ios {
		if io.CurrencyCode == code {
			total = total.Add(io.Amount)
		}
	}
	return total
}

func TestFeePolicy_Tiers(t *testing.T) {
	p := DefaultFeePolicy()
	tests := []struct {
		tier    FeeTier
		custom  *types.Amount
		want    string
		wantErr bool
	}{
		{"", nil, "50000", false},
		{FeeStandard, nil, "50000", false},
		{FeeHigh, nil, "60000", false},
		{FeeLow, nil, "40000", false},
		{FeeCustom, amtPtr("123"), "123", false},
		{FeeCustom, amtPtr("0"), "0", false},
		{FeeCustom, amtPtr("-1"), "", true},
		{FeeCustom, nil, "", true},
		{"turbo", nil, "", true},
	}
	for _, tt := range tests {
		fee, err := p.Fee(tt.tier, tt.custom)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidSpend, "tier %q", tt.tier)
			continue
		}
		require.NoError(t, err, "tier %q", tt.tier)
		assert.Equal(t, tt.want, fee.String(), "tier %q", tt.tier)
	}

	low, err := FeePolicy{Default: amt("5000")}.Fee(FeeLow, nil)
	require.NoError(t, err)
	assert.True(t, low.IsZero(), "low tier floors at zero")
}

func TestBuildSpend_ConservesValue(t *testing.T) {
	s, d := fundedState(t, "1000000")
	before := s.Snapshot()

	tx, err := s.BuildSpend(SpendRequest{
		Targets: []SpendTarget{{Address: "B", Amount: amtPtr("400000")}},
	}, d, DefaultFeePolicy())
	require.NoError(t, err)

	in := sumIO(tx.ChainParams.Inputs, "TRD")
	out := sumIO(tx.ChainParams.Outputs, "TRD")
	assert.False(t, in.LessThan(amt("450000")), "inputs %s must cover target plus fee", in)
	assert.True(t, out.Add(tx.ChainParams.Fee).Equal(in), "outputs %s + fee %s != inputs %s", out, tx.ChainParams.Fee, in)

	changeAddr, _ := d.Derive(before.UnusedAddressIndex)
	require.Len(t, tx.ChainParams.Outputs, 2)
	assert.Equal(t, "B", tx.ChainParams.Outputs[0].Address)
	assert.Equal(t, "400000", tx.ChainParams.Outputs[0].Amount.String())
	assert.Equal(t, changeAddr, tx.ChainParams.Outputs[1].Address)
	assert.Equal(t, "550000", tx.ChainParams.Outputs[1].Amount.String())
	assert.Equal(t, []string{changeAddr}, tx.OwnedReceiveAddresses)

	assert.Empty(t, tx.TxID)
	assert.Zero(t, tx.Timestamp)
	assert.Equal(t, "-450000", tx.NetNativeAmount.String())
	assert.True(t, tx.NetworkFee.IsZero())
	assert.Equal(t, SigningStatusUnsigned, tx.SigningStatus)
	assert.NotEmpty(t, tx.ProposalID)

	assert.Equal(t, before.UnusedAddressIndex, s.UnusedAddressIndex(), "change must not advance the unused index")
}

func TestBuildSpend_InsufficientFundsBeforeSelection(t *testing.T) {
	s, d := fundedState(t, "1000000")

	tx, err := s.BuildSpend(SpendRequest{
		Targets: []SpendTarget{{Address: "B", Amount: amtPtr("2000000")}},
	}, d, DefaultFeePolicy())
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.NotErrorIs(t, err, ErrInvalidSpend)
	assert.Nil(t, tx)
}

func TestBuildSpend_FeeCountsAgainstBalance(t *testing.T) {
	s, d := fundedState(t, "100000")

	_, err := s.BuildSpend(SpendRequest{
		Targets: []SpendTarget{{Address: "B", Amount: amtPtr("60000")}},
	}, d, DefaultFeePolicy())
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	tx, err := s.BuildSpend(SpendRequest{
		Targets: []SpendTarget{{Address: "B", Amount: amtPtr("60000")}},
		FeeTier: FeeLow,
	}, d, DefaultFeePolicy())
	require.NoError(t, err)
	assert.Len(t, tx.ChainParams.Outputs, 1, "exact cover needs no change")
}

func TestBuildSpend_GreedyStopsWhenCovered(t *testing.T) {
	s, d := fundedState(t, "300000", "0", "300000", "400000")

	tx, err := s.BuildSpend(SpendRequest{
		Targets: []SpendTarget{{Address: "B", Amount: amtPtr("400000")}},
	}, d, DefaultFeePolicy())
	require.NoError(t, err)

	addrs := s.Snapshot().Addresses
	require.Len(t, tx.ChainParams.Inputs, 2)
	assert.Equal(t, addrs[0].Address, tx.ChainParams.Inputs[0].Address)
	assert.Equal(t, addrs[2].Address, tx.ChainParams.Inputs[1].Address)
	assert.Equal(t, "150000", tx.ChainParams.Outputs[1].Amount.String())
}

func TestBuildSpend_MultiCurrency(t *testing.T) {
	s, d := newTestState(t, "TOK")
	require.NoError(t, s.EnableTokens([]string{"TOK"}))
	_, err := s.PrepareScan(d, GapLimit)
	require.NoError(t, err)
	s.ApplyAddress(0, []string{"f"}, Balances{"TRD": amt("100000"), "TOK": amt("10")})
	s.RecomputeBalances()

	tx, err := s.BuildSpend(SpendRequest{
		CurrencyCode: "TOK",
		Targets:      []SpendTarget{{Address: "B", Amount: amtPtr("4")}},
	}, d, DefaultFeePolicy())
	require.NoError(t, err)

	assert.Equal(t, "TOK", tx.CurrencyCode)
	for _, code := range []string{"TRD", "TOK"} {
		in := sumIO(tx.ChainParams.Inputs, code)
		out := sumIO(tx.ChainParams.Outputs, code)
		if code == "TRD" {
			out = out.Add(tx.ChainParams.Fee)
		}
		assert.True(t, in.Equal(out), "%s: inputs %s != outputs %s", code, in, out)
	}
	assert.Equal(t, "-50000", tx.NetNativeAmount.String())
}

func TestBuildSpend_Validation(t *testing.T) {
	s, d := fundedState(t, "1000000")

	tests := []struct {
		name string
		req  SpendRequest
	}{
		{"no targets", SpendRequest{}},
		{"missing amount", SpendRequest{Targets: []SpendTarget{{Address: "B"}}}},
		{"missing address", SpendRequest{Targets: []SpendTarget{{Amount: amtPtr("1")}}}},
		{"negative amount", SpendRequest{Targets: []SpendTarget{{Address: "B", Amount: amtPtr("-1")}}}},
		{"negative custom fee", SpendRequest{Targets: []SpendTarget{{Address: "B", Amount: amtPtr("1")}}, FeeTier: FeeCustom, CustomFee: amtPtr("-5")}},
		{"unknown currency", SpendRequest{CurrencyCode: "XYZ", Targets: []SpendTarget{{Address: "B", Amount: amtPtr("1")}}}},
		{"disabled token", SpendRequest{Targets: []SpendTarget{{Address: "B", Amount: amtPtr("1"), CurrencyCode: "TOK"}}}},
		// Validation wins over the balance check.
		{"invalid and unaffordable", SpendRequest{Targets: []SpendTarget{{Address: "B", Amount: amtPtr("9000000")}, {Address: "C"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := s.BuildSpend(tt.req, d, DefaultFeePolicy())
			assert.ErrorIs(t, err, ErrInvalidSpend)
			assert.NotErrorIs(t, err, ErrInsufficientFunds)
			assert.Nil(t, tx)
		})
	}

	_, err := s.BuildSpend(SpendRequest{CurrencyCode: "XYZ", Targets: []SpendTarget{{Address: "B", Amount: amtPtr("1")}}}, d, DefaultFeePolicy())
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)
}
