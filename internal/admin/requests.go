// internal/admin/requests.go
package admin

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/coinfun/internal/curve"
)

// Message domains of the administrative operations.
const (
	DomainInitialize      = "initialize"
	DomainUpdateConfig    = "update_config"
	DomainCreateAsset     = "create_asset"
	DomainDepositReserve  = "deposit_to_reserve"
	DomainWithdrawCurve   = "withdraw"
	DomainWithdrawReserve = "withdraw_reserve"
)

// Every signed request carries a Nonce. A signed message is accepted once,
// so repeating an operation with the same fields needs a new nonce.

// ConfigParams are the writable fields of the global config.
type ConfigParams struct {
	Authority                    solana.PublicKey
	FeeRecipient                 solana.PublicKey
	InitialVirtualTokenReserves  uint64
	InitialVirtualNativeReserves uint64
	TotalSupply                  uint64
	PlatformFeeBps               uint64
	ReserveFeeBps                uint64
	GraduationThreshold          uint64
	Nonce                        uint64
}

func (p ConfigParams) apply(g curve.Global) curve.Global {
	g.Authority = p.Authority
	g.FeeRecipient = p.FeeRecipient
	g.InitialVirtualTokenReserves = p.InitialVirtualTokenReserves
	g.InitialVirtualNativeReserves = p.InitialVirtualNativeReserves
	g.TotalSupply = p.TotalSupply
	g.PlatformFeeBps = p.PlatformFeeBps
	g.ReserveFeeBps = p.ReserveFeeBps
	g.GraduationThreshold = p.GraduationThreshold
	return g
}

// CreateAssetRequest names a new asset. Mint is the new asset's address.
type CreateAssetRequest struct {
	Mint   solana.PublicKey
	Name   string
	Symbol string
	URI    string
	Nonce  uint64
}

// ReserveRequest moves Amount tokens of Mint into or out of the shared reserve.
type ReserveRequest struct {
	Mint   solana.PublicKey
	Amount uint64
	Nonce  uint64
}

// WithdrawRequest drains a graduated curve.
type WithdrawRequest struct {
	Mint  solana.PublicKey
	Nonce uint64
}

// Withdrawal reports what a withdrawal moved.
type Withdrawal struct {
	Tokens uint64
	Native uint64
}
