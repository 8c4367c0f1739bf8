// =============================
// File: internal/curve/state.go
// =============================
package curve

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// Side is the direction of a trade against a curve.
type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// ParseSide accepts "buy" or "sell".
func ParseSide(s string) (Side, error) {
	switch s {
	case "buy":
		return SideBuy, nil
	case "sell":
		return SideSell, nil
	default:
		return 0, fmt.Errorf("unknown trade side %q", s)
	}
}

// Global is the singleton configuration shared by every curve.
type Global struct {
	Authority                    solana.PublicKey
	FeeRecipient                 solana.PublicKey
	ReserveAuthority             solana.PublicKey
	InitialVirtualTokenReserves  uint64
	InitialVirtualNativeReserves uint64
	TotalSupply                  uint64
	PlatformFeeBps               uint64
	ReserveFeeBps                uint64
	GraduationThreshold          uint64
}

// Fees returns the fee rates applied to trades.
func (g Global) Fees() Fees {
	return Fees{PlatformBps: g.PlatformFeeBps, ReserveBps: g.ReserveFeeBps}
}

// Validate checks the invariants every write of Global must hold.
func (g Global) Validate() error {
	if err := g.Fees().Validate(); err != nil {
		return err
	}
	if g.TotalSupply == 0 || g.InitialVirtualTokenReserves == 0 || g.InitialVirtualNativeReserves == 0 {
		return ErrInvalidTokenReserveConfiguration
	}
	return nil
}

// NewCurve seeds the state of a freshly created asset. The whole supply starts
// in the curve's custody.
func (g Global) NewCurve(mint, creator solana.PublicKey) State {
	return State{
		Mint:                  mint,
		Creator:               creator,
		VirtualTokenReserves:  g.InitialVirtualTokenReserves,
		VirtualNativeReserves: g.InitialVirtualNativeReserves,
		RealTokenReserves:     g.TotalSupply,
		RealNativeReserves:    0,
		TotalSupply:           g.TotalSupply,
		Complete:              false,
	}
}

// State is the per-asset curve record.
type State struct {
	Mint                  solana.PublicKey
	Creator               solana.PublicKey
	VirtualTokenReserves  uint64
	VirtualNativeReserves uint64
	RealTokenReserves     uint64
	RealNativeReserves    uint64
	TotalSupply           uint64
	Complete              bool
}

// Product returns virtual native reserves times virtual token reserves.
func (s State) Product() (*uint256.Int, error) {
	return product(s.VirtualNativeReserves, s.VirtualTokenReserves)
}

// Distributed is the number of tokens held outside the curve's real reserves.
func (s State) Distributed() uint64 {
	return s.TotalSupply - s.RealTokenReserves
}
