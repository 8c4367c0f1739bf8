// =============================
// File: internal/curve/pricing.go
// =============================
package curve

import (
	"fmt"
)

// BuyResult is what a buy moves between trader, platform, curve and reserve.
type BuyResult struct {
	SolIn         uint64
	PlatformFee   uint64
	ReserveFee    uint64
	ReserveTokens uint64
	TokensOut     uint64
	NetIn         uint64
}

// VaultInflow is the native amount the curve vault receives from the trader.
func (r BuyResult) VaultInflow() (uint64, error) {
	return checkedAdd(r.NetIn, r.ReserveFee)
}

// SellResult is what a sell moves between trader, platform, curve and reserve.
type SellResult struct {
	TokensIn      uint64
	GrossOut      uint64
	PlatformFee   uint64
	ReserveFee    uint64
	ReserveTokens uint64
	NetOut        uint64
}

// VaultOutflow is the native amount debited from the curve vault.
func (r SellResult) VaultOutflow() (uint64, error) {
	return checkedAdd(r.PlatformFee, r.NetOut)
}

// Buy prices a purchase of tokens with solIn native units.
//
// The reserve fee buys tokens for the shared reserve first, against the
// current reserves; the trader's net amount is then priced against the
// reserves that buyback left behind.
func Buy(s State, fees Fees, solIn, minTokensOut uint64) (State, BuyResult, error) {
	if s.Complete {
		return s, BuyResult{}, ErrCurveComplete
	}
	if solIn == 0 {
		return s, BuyResult{}, ErrZeroAmount
	}

	split, err := fees.Split(solIn)
	if err != nil {
		return s, BuyResult{}, fmt.Errorf("buy fees: %w", err)
	}
	netIn, err := checkedSub(solIn, split.Total)
	if err != nil {
		return s, BuyResult{}, fmt.Errorf("buy net amount: %w", err)
	}

	next := s
	res := BuyResult{
		SolIn:       solIn,
		PlatformFee: split.Platform,
		ReserveFee:  split.Reserve,
		NetIn:       netIn,
	}

	if split.Reserve > 0 {
		vn, vt, bought, err := swapOut(next.VirtualNativeReserves, next.VirtualTokenReserves, split.Reserve)
		if err != nil {
			return s, BuyResult{}, fmt.Errorf("reserve buyback: %w", err)
		}
		next.VirtualNativeReserves, next.VirtualTokenReserves = vn, vt
		if next.RealNativeReserves, err = checkedAdd(next.RealNativeReserves, split.Reserve); err != nil {
			return s, BuyResult{}, fmt.Errorf("reserve buyback: %w", err)
		}
		if next.RealTokenReserves, err = checkedSub(next.RealTokenReserves, bought); err != nil {
			return s, BuyResult{}, fmt.Errorf("reserve buyback: %w", err)
		}
		res.ReserveTokens = bought
	}

	vn, vt, tokensOut, err := swapOut(next.VirtualNativeReserves, next.VirtualTokenReserves, netIn)
	if err != nil {
		return s, BuyResult{}, fmt.Errorf("buy swap: %w", err)
	}
	if tokensOut < minTokensOut {
		return s, BuyResult{}, &SlippageExceededError{Side: SideBuy, Minimum: minTokensOut, Actual: tokensOut}
	}
	if next.RealTokenReserves < tokensOut {
		return s, BuyResult{}, fmt.Errorf("%w: need %d, have %d", ErrInsufficientBacking, tokensOut, next.RealTokenReserves)
	}

	next.VirtualNativeReserves, next.VirtualTokenReserves = vn, vt
	if next.RealNativeReserves, err = checkedAdd(next.RealNativeReserves, netIn); err != nil {
		return s, BuyResult{}, fmt.Errorf("buy commit: %w", err)
	}
	next.RealTokenReserves -= tokensOut
	res.TokensOut = tokensOut

	return next, res, nil
}

// Sell prices a sale of tokensIn tokens back to the curve.
//
// The trader's gross proceeds are priced against the current reserves, fees
// come out of the gross, and the reserve fee then buys tokens against the
// reserves the sale left behind.
func Sell(s State, fees Fees, tokensIn, minSolOut uint64) (State, SellResult, error) {
	if s.Complete {
		return s, SellResult{}, ErrCurveComplete
	}
	if tokensIn == 0 {
		return s, SellResult{}, ErrZeroAmount
	}

	vt, vn, grossOut, err := swapOut(s.VirtualTokenReserves, s.VirtualNativeReserves, tokensIn)
	if err != nil {
		return s, SellResult{}, fmt.Errorf("sell swap: %w", err)
	}

	split, err := fees.Split(grossOut)
	if err != nil {
		return s, SellResult{}, fmt.Errorf("sell fees: %w", err)
	}
	netOut, err := checkedSub(grossOut, split.Total)
	if err != nil {
		return s, SellResult{}, fmt.Errorf("sell net amount: %w", err)
	}

	next := s
	next.VirtualNativeReserves, next.VirtualTokenReserves = vn, vt
	res := SellResult{
		TokensIn:    tokensIn,
		GrossOut:    grossOut,
		PlatformFee: split.Platform,
		ReserveFee:  split.Reserve,
		NetOut:      netOut,
	}

	if split.Reserve > 0 {
		vn2, vt2, bought, err := swapOut(vn, vt, split.Reserve)
		if err != nil {
			return s, SellResult{}, fmt.Errorf("reserve buyback: %w", err)
		}
		next.VirtualNativeReserves, next.VirtualTokenReserves = vn2, vt2
		res.ReserveTokens = bought
	}

	if netOut < minSolOut {
		return s, SellResult{}, &SlippageExceededError{Side: SideSell, Minimum: minSolOut, Actual: netOut}
	}

	removed, err := checkedSub(grossOut, split.Reserve)
	if err != nil {
		return s, SellResult{}, fmt.Errorf("sell commit: %w", err)
	}
	if next.RealNativeReserves, err = checkedSub(next.RealNativeReserves, removed); err != nil {
		return s, SellResult{}, fmt.Errorf("sell commit: %w", err)
	}
	if next.RealTokenReserves, err = checkedAdd(next.RealTokenReserves, tokensIn); err != nil {
		return s, SellResult{}, fmt.Errorf("sell commit: %w", err)
	}
	if res.ReserveTokens > 0 {
		if next.RealTokenReserves, err = checkedSub(next.RealTokenReserves, res.ReserveTokens); err != nil {
			return s, SellResult{}, fmt.Errorf("sell commit: %w", err)
		}
	}

	return next, res, nil
}
