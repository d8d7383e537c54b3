package wallet

import (
	"fmt"

	"github.com/Klingon-tech/trd-wallet/pkg/types"
	"github.com/google/uuid"
)

// FeeTier selects how the network fee of a spend is computed.
type FeeTier string

// Fee tiers.
const (
	FeeStandard FeeTier = "standard"
	FeeHigh     FeeTier = "high"
	FeeLow      FeeTier = "low"
	FeeCustom   FeeTier = "custom"
)

// DefaultFee is the standard network fee in native units.
const DefaultFee = 50000

// FeeStep is the difference between adjacent fee tiers.
const FeeStep = 10000

// SpendTarget is one payment in a spend request. An empty CurrencyCode
// means the request's currency.
type SpendTarget struct {
	Address      string        `json:"address"`
	Amount       *types.Amount `json:"amount"`
	CurrencyCode string        `json:"currencyCode,omitempty"`
}

// SpendRequest describes a spend to build.
type SpendRequest struct {
	CurrencyCode string        `json:"currencyCode,omitempty"`
	Targets      []SpendTarget `json:"targets"`
	FeeTier      FeeTier       `json:"feeTier,omitempty"`
	CustomFee    *types.Amount `json:"customFee,omitempty"`
}

// FeePolicy turns a fee tier into an amount.
type FeePolicy struct {
	Default types.Amount
}

// DefaultFeePolicy returns the policy with the standard default fee.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{Default: types.NewAmount(DefaultFee)}
}

// Fee returns the network fee for tier. The low tier never goes below zero.
func (p FeePolicy) Fee(tier FeeTier, custom *types.Amount) (types.Amount, error) {
	step := types.NewAmount(FeeStep)
	switch tier {
	case "", FeeStandard:
		return p.Default, nil
	case FeeHigh:
		return p.Default.Add(step), nil
	case FeeLow:
		fee := p.Default.Sub(step)
		if fee.IsNegative() {
			return types.Zero, nil
		}
		return fee, nil
	case FeeCustom:
		if custom == nil {
			return types.Amount{}, fmt.Errorf("%w: custom fee tier requires a fee", ErrInvalidSpend)
		}
		if custom.IsNegative() {
			return types.Amount{}, fmt.Errorf("%w: negative custom fee %s", ErrInvalidSpend, custom)
		}
		return *custom, nil
	default:
		return types.Amount{}, fmt.Errorf("%w: unknown fee tier %q", ErrInvalidSpend, tier)
	}
}

// BuildSpend constructs an unsigned spend proposal. Balances are checked
// before any input is selected; inputs consume whole address balances in
// address order until each currency's total is covered, and any excess goes
// back to the address at the unused index.
func (s *State) BuildSpend(req SpendRequest, d Deriver, fees FeePolicy) (*Transaction, error) {
	fee, err := fees.Fee(req.FeeTier, req.CustomFee)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code := req.CurrencyCode
	if code == "" {
		code = s.primary
	}
	if err := s.checkSpendable(code); err != nil {
		return nil, err
	}
	if len(req.Targets) == 0 {
		return nil, fmt.Errorf("%w: no targets", ErrInvalidSpend)
	}

	totals := Balances{s.primary: types.Zero}
	var outputs []TxIO
	for i, t := range req.Targets {
		if t.Address == "" {
			return nil, fmt.Errorf("%w: target %d has no address", ErrInvalidSpend, i)
		}
		if t.Amount == nil {
			return nil, fmt.Errorf("%w: target %d has no amount", ErrInvalidSpend, i)
		}
		if t.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: target %d has negative amount %s", ErrInvalidSpend, i, t.Amount)
		}
		tc := t.CurrencyCode
		if tc == "" {
			tc = code
		}
		if err := s.checkSpendable(tc); err != nil {
			return nil, err
		}
		totals[tc] = totals.Get(tc).Add(*t.Amount)
		outputs = append(outputs, TxIO{CurrencyCode: tc, Address: t.Address, Amount: *t.Amount})
	}
	totals[s.primary] = totals[s.primary].Add(fee)

	for _, c := range s.snap.EnabledTokens {
		want := totals.Get(c)
		if want.IsZero() {
			continue
		}
		if have := s.snap.TotalBalances.Get(c); want.GreaterThan(have) {
			return nil, fmt.Errorf("%w: %s needs %s, have %s", ErrInsufficientFunds, c, want, have)
		}
	}

	changeAddr, err := d.Derive(s.snap.UnusedAddressIndex)
	if err != nil {
		return nil, fmt.Errorf("derive change address: %w", err)
	}

	var inputs []TxIO
	var receivers []string
	for _, c := range s.snap.EnabledTokens {
		want := totals.Get(c)
		if want.IsZero() {
			continue
		}
		have := types.Zero
		for _, rec := range s.snap.Addresses {
			if amt := rec.Amounts.Get(c); amt.IsPositive() {
				have = have.Add(amt)
				inputs = append(inputs, TxIO{CurrencyCode: c, Address: rec.Address, Amount: amt})
			}
			if !have.LessThan(want) {
				break
			}
		}
		if have.LessThan(want) {
			return nil, fmt.Errorf("%w: %s needs %s, addresses hold %s", ErrInsufficientFunds, c, want, have)
		}
		if change := have.Sub(want); change.IsPositive() {
			outputs = append(outputs, TxIO{CurrencyCode: c, Address: changeAddr, Amount: change})
			if !contains(receivers, changeAddr) {
				receivers = append(receivers, changeAddr)
			}
		}
	}
	if receivers == nil {
		receivers = []string{}
	}

	return &Transaction{
		CurrencyCode:          code,
		NetNativeAmount:       totals[s.primary].Neg(),
		NetworkFee:            types.Zero,
		OwnedReceiveAddresses: receivers,
		SigningStatus:         SigningStatusUnsigned,
		ChainParams: ChainParams{
			Inputs:  inputs,
			Outputs: outputs,
			Fee:     fee,
		},
		ProposalID: uuid.NewString(),
	}, nil
}

// checkSpendable must be called with s.mu held.
func (s *State) checkSpendable(code string) error {
	if !contains(s.supported, code) {
		return fmt.Errorf("%w: %w %s", ErrInvalidSpend, ErrUnsupportedCurrency, code)
	}
	if !contains(s.snap.EnabledTokens, code) {
		return fmt.Errorf("%w: currency %s is not enabled", ErrInvalidSpend, code)
	}
	return nil
}
