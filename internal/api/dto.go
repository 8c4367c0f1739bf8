// internal/api/dto.go
package api

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/coinfun/internal/authority"
	"github.com/rovshanmuradov/coinfun/internal/curve"
	"github.com/rovshanmuradov/coinfun/internal/settlement"
	"github.com/rovshanmuradov/coinfun/internal/storage/models"
)

type errorResponse struct {
	Error string `json:"error"`
}

type curveState struct {
	Mint                  string `json:"mint"`
	Creator               string `json:"creator"`
	VirtualTokenReserves  uint64 `json:"virtual_token_reserves"`
	VirtualNativeReserves uint64 `json:"virtual_native_reserves"`
	RealTokenReserves     uint64 `json:"real_token_reserves"`
	RealNativeReserves    uint64 `json:"real_native_reserves"`
	TotalSupply           uint64 `json:"total_supply"`
	Complete              bool   `json:"complete"`
}

func newCurveState(st curve.State) curveState {
	return curveState{
		Mint:                  st.Mint.String(),
		Creator:               st.Creator.String(),
		VirtualTokenReserves:  st.VirtualTokenReserves,
		VirtualNativeReserves: st.VirtualNativeReserves,
		RealTokenReserves:     st.RealTokenReserves,
		RealNativeReserves:    st.RealNativeReserves,
		TotalSupply:           st.TotalSupply,
		Complete:              st.Complete,
	}
}

type curveResponse struct {
	curveState
	Phase     string  `json:"phase"`
	SpotPrice float64 `json:"spot_price"`
	Progress  float64 `json:"progress"`
}

func newCurveResponse(v settlement.CurveView) curveResponse {
	return curveResponse{
		curveState: newCurveState(v.State),
		Phase:      v.Phase.String(),
		SpotPrice:  v.SpotPrice,
		Progress:   v.Progress,
	}
}

type quoteResponse struct {
	Mint          string  `json:"mint"`
	Side          string  `json:"side"`
	Amount        uint64  `json:"amount"`
	NativeAmount  uint64  `json:"native_amount"`
	TokenAmount   uint64  `json:"token_amount"`
	PlatformFee   uint64  `json:"platform_fee"`
	ReserveFee    uint64  `json:"reserve_fee"`
	ReserveTokens uint64  `json:"reserve_tokens"`
	SpotPrice     float64 `json:"spot_price"`
	Progress      float64 `json:"progress"`
}

// tradeRequest is a signed order. Signature is the base58 ed25519 signature
// of the trader over the canonical trade message.
type tradeRequest struct {
	Mint      string `json:"mint"`
	Trader    string `json:"trader"`
	Side      string `json:"side"`
	Amount    uint64 `json:"amount"`
	MinOut    uint64 `json:"min_out"`
	Nonce     uint64 `json:"nonce"`
	Signature string `json:"signature"`
}

func (r tradeRequest) order() (settlement.Order, error) {
	mint, err := solana.PublicKeyFromBase58(r.Mint)
	if err != nil {
		return settlement.Order{}, fmt.Errorf("invalid mint: %w", err)
	}
	trader, err := solana.PublicKeyFromBase58(r.Trader)
	if err != nil {
		return settlement.Order{}, fmt.Errorf("invalid trader: %w", err)
	}
	side, err := curve.ParseSide(r.Side)
	if err != nil {
		return settlement.Order{}, err
	}
	sig, err := solana.SignatureFromBase58(r.Signature)
	if err != nil {
		return settlement.Order{}, fmt.Errorf("invalid signature: %w", err)
	}
	return settlement.Order{
		Request: settlement.TradeRequest{
			Mint:   mint,
			Trader: trader,
			Side:   side,
			Amount: r.Amount,
			MinOut: r.MinOut,
			Nonce:  r.Nonce,
		},
		Credential: authority.Credential{Signer: trader, Signature: sig},
	}, nil
}

type receiptResponse struct {
	Mint          string     `json:"mint"`
	Trader        string     `json:"trader"`
	Side          string     `json:"side"`
	NativeAmount  uint64     `json:"native_amount"`
	TokenAmount   uint64     `json:"token_amount"`
	PlatformFee   uint64     `json:"platform_fee"`
	ReserveFee    uint64     `json:"reserve_fee"`
	ReserveTokens uint64     `json:"reserve_tokens"`
	Graduated     bool       `json:"graduated"`
	Curve         curveState `json:"curve"`
}

type tradeResponse struct {
	Mint         string    `json:"mint"`
	Trader       string    `json:"trader"`
	Side         string    `json:"side"`
	NativeAmount uint64    `json:"native_amount"`
	TokenAmount  uint64    `json:"token_amount"`
	PlatformFee  uint64    `json:"platform_fee"`
	ReserveFee   uint64    `json:"reserve_fee"`
	ExecutedAt   time.Time `json:"executed_at"`
}

func newTradeResponse(t *models.Trade) tradeResponse {
	return tradeResponse{
		Mint:         t.Mint,
		Trader:       t.Trader,
		Side:         t.Side,
		NativeAmount: t.NativeAmount,
		TokenAmount:  t.TokenAmount,
		PlatformFee:  t.PlatformFee,
		ReserveFee:   t.ReserveFee,
		ExecutedAt:   t.ExecutedAt,
	}
}
