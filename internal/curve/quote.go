// internal/curve/quote.go
package curve

import (
	"math"
)

const (
	NativeDecimals = 9
	TokenDecimals  = 6
)

// QuoteBuy returns what Buy would produce without any slippage bound.
func QuoteBuy(s State, fees Fees, solIn uint64) (BuyResult, error) {
	_, res, err := Buy(s, fees, solIn, 0)
	return res, err
}

// QuoteSell returns what Sell would produce without any slippage bound.
func QuoteSell(s State, fees Fees, tokensIn uint64) (SellResult, error) {
	_, res, err := Sell(s, fees, tokensIn, 0)
	return res, err
}

// SpotPrice is the marginal price in whole native units per whole token.
func SpotPrice(s State) float64 {
	if s.VirtualTokenReserves == 0 {
		return 0
	}
	native := float64(s.VirtualNativeReserves) / math.Pow10(NativeDecimals)
	tokens := float64(s.VirtualTokenReserves) / math.Pow10(TokenDecimals)
	return native / tokens
}

// Progress is the fraction of the graduation threshold already raised, capped at 1.
func Progress(s State, threshold uint64) float64 {
	if threshold == 0 || s.Complete {
		return 1
	}
	p := float64(s.RealNativeReserves) / float64(threshold)
	if p > 1 {
		return 1
	}
	return p
}
