// internal/settlement/quote.go
package settlement

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/coinfun/internal/curve"
)

// Quote is the outcome a trade would have against committed state.
type Quote struct {
	Mint          solana.PublicKey
	Side          curve.Side
	Amount        uint64
	NativeAmount  uint64
	TokenAmount   uint64
	PlatformFee   uint64
	ReserveFee    uint64
	ReserveTokens uint64
	SpotPrice     float64
	Progress      float64
}

// CurveView is a curve record with derived market figures.
type CurveView struct {
	State     curve.State
	Phase     curve.Phase
	SpotPrice float64
	Progress  float64
}

// Curve returns the committed view of one curve.
func (e *Engine) Curve(mint solana.PublicKey) (CurveView, error) {
	g, err := e.store.Global()
	if err != nil {
		return CurveView{}, err
	}
	st, err := e.store.Curve(mint)
	if err != nil {
		return CurveView{}, err
	}
	return view(st, g.GraduationThreshold), nil
}

// Curves returns every curve.
func (e *Engine) Curves() ([]CurveView, error) {
	g, err := e.store.Global()
	if err != nil {
		return nil, err
	}
	states, err := e.store.Curves()
	if err != nil {
		return nil, err
	}
	out := make([]CurveView, 0, len(states))
	for _, st := range states {
		out = append(out, view(st, g.GraduationThreshold))
	}
	return out, nil
}

func view(st curve.State, threshold uint64) CurveView {
	return CurveView{
		State:     st,
		Phase:     st.Phase(),
		SpotPrice: curve.SpotPrice(st),
		Progress:  curve.Progress(st, threshold),
	}
}

// Quote prices a trade without settling it.
func (e *Engine) Quote(mint solana.PublicKey, side curve.Side, amount uint64) (Quote, error) {
	g, err := e.store.Global()
	if err != nil {
		return Quote{}, err
	}
	st, err := e.store.Curve(mint)
	if err != nil {
		return Quote{}, err
	}

	q := Quote{Mint: mint, Side: side, Amount: amount}
	var next curve.State
	switch side {
	case curve.SideBuy:
		var res curve.BuyResult
		next, res, err = curve.Buy(st, g.Fees(), amount, 0)
		q.NativeAmount, q.TokenAmount = amount, res.TokensOut
		q.PlatformFee, q.ReserveFee, q.ReserveTokens = res.PlatformFee, res.ReserveFee, res.ReserveTokens
	default:
		var res curve.SellResult
		next, res, err = curve.Sell(st, g.Fees(), amount, 0)
		q.NativeAmount, q.TokenAmount = res.NetOut, amount
		q.PlatformFee, q.ReserveFee, q.ReserveTokens = res.PlatformFee, res.ReserveFee, res.ReserveTokens
	}
	if err != nil {
		return Quote{}, e.wrap(mint, err)
	}
	q.SpotPrice = curve.SpotPrice(next)
	q.Progress = curve.Progress(next, g.GraduationThreshold)
	return q, nil
}

// Output is the amount the trader receives: tokens for a buy, net native
// units for a sell.
func (q Quote) Output() uint64 {
	if q.Side == curve.SideBuy {
		return q.TokenAmount
	}
	return q.NativeAmount
}
