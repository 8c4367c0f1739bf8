// internal/authority/program.go
package authority

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Seeds of the program-derived addresses.
const (
	SeedGlobal       = "global"
	SeedBondingCurve = "bonding_curve"
	SeedReserve      = "reserve"
)

// Program derives the keyless authorities owned by a program id. Derived
// addresses are cached.
type Program struct {
	ID    solana.PublicKey
	cache sync.Map // string -> solana.PublicKey
}

func NewProgram(id solana.PublicKey) *Program {
	return &Program{ID: id}
}

func (p *Program) derive(seeds ...[]byte) (solana.PublicKey, error) {
	var key string
	for _, s := range seeds {
		key += string(s) + "/"
	}
	if v, ok := p.cache.Load(key); ok {
		return v.(solana.PublicKey), nil
	}
	addr, _, err := solana.FindProgramAddress(seeds, p.ID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive program address: %w", err)
	}
	p.cache.Store(key, addr)
	return addr, nil
}

// GlobalAddress is the address of the config record.
func (p *Program) GlobalAddress() (solana.PublicKey, error) {
	return p.derive([]byte(SeedGlobal))
}

// ReserveAuthority controls the shared reserve vault.
func (p *Program) ReserveAuthority() (solana.PublicKey, error) {
	return p.derive([]byte(SeedReserve))
}

// CurveAuthority controls the vault of one curve.
func (p *Program) CurveAuthority(mint solana.PublicKey) (solana.PublicKey, error) {
	return p.derive([]byte(SeedBondingCurve), mint.Bytes())
}
