package curve

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func drawCurve(t *rapid.T) (State, Fees) {
	vn := rapid.Uint64Range(1_000, 1_000_000_000_000).Draw(t, "vn0")
	vt := rapid.Uint64Range(1_000, 1_000_000_000_000_000).Draw(t, "vt0")
	supply := rapid.Uint64Range(1, vt).Draw(t, "supply")
	fees := Fees{
		PlatformBps: rapid.Uint64Range(0, 1_500).Draw(t, "platformBps"),
		ReserveBps:  rapid.Uint64Range(0, 1_500).Draw(t, "reserveBps"),
	}
	return newTestState(vn, vt, supply), fees
}

// Tokens are only ever moved between the curve, the traders and the reserve.
func TestPropertyTradesConserveSupply(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s, fees := drawCurve(t)
		vn0 := s.VirtualNativeReserves
		tokenOffset := s.VirtualTokenReserves - s.RealTokenReserves
		var traderTokens, reserveTokens uint64

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			before := s
			kBefore, err := before.Product()
			require.NoError(t, err)

			if traderTokens == 0 || rapid.Bool().Draw(t, "buy") {
				amount := rapid.Uint64Range(1, 100_000_000_000).Draw(t, "solIn")
				next, res, err := Buy(s, fees, amount, 0)
				if err != nil {
					require.Equal(t, before, next)
					continue
				}
				s = next
				traderTokens += res.TokensOut
				reserveTokens += res.ReserveTokens
			} else {
				amount := rapid.Uint64Range(1, traderTokens).Draw(t, "tokensIn")
				next, res, err := Sell(s, fees, amount, 0)
				require.NoError(t, err, "selling held tokens never underflows the curve")
				s = next
				traderTokens -= amount
				reserveTokens += res.ReserveTokens
			}

			require.Equal(t, s.TotalSupply, s.RealTokenReserves+traderTokens+reserveTokens)
			require.Equal(t, s.VirtualNativeReserves-vn0, s.RealNativeReserves)
			require.Equal(t, tokenOffset, s.VirtualTokenReserves-s.RealTokenReserves)

			kAfter, err := s.Product()
			require.NoError(t, err)
			require.False(t, kAfter.Lt(kBefore), "reserve product decreased")
		}
	})
}

func TestPropertyRoundTripNeverProfits(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s, fees := drawCurve(t)
		solIn := rapid.Uint64Range(1, 100_000_000_000).Draw(t, "solIn")

		afterBuy, buy, err := Buy(s, fees, solIn, 0)
		if err != nil || buy.TokensOut == 0 {
			t.Skip("nothing bought")
		}
		_, sell, err := Sell(afterBuy, fees, buy.TokensOut, 0)
		require.NoError(t, err)
		require.LessOrEqual(t, sell.NetOut, solIn)
		require.LessOrEqual(t, sell.GrossOut, buy.NetIn)
	})
}

func TestPropertySlippageFailureIsSideEffectFree(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s, fees := drawCurve(t)
		solIn := rapid.Uint64Range(1, 100_000_000_000).Draw(t, "solIn")

		quote, err := QuoteBuy(s, fees, solIn)
		if err != nil {
			t.Skip("unquotable")
		}
		next, _, err := Buy(s, fees, solIn, quote.TokensOut+1)
		var slip *SlippageExceededError
		require.True(t, errors.As(err, &slip))
		require.Equal(t, quote.TokensOut, slip.Actual)
		require.Equal(t, s, next)
	})
}
