package authority

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Mint   solana.PublicKey
	Amount uint64
}

func TestProgramAddressesAreOffCurveAndStable(t *testing.T) {
	p := NewProgram(solana.NewWallet().PublicKey())
	mint := solana.NewWallet().PublicKey()

	reserve, err := p.ReserveAuthority()
	require.NoError(t, err)
	assert.False(t, solana.IsOnCurve(reserve[:]))

	a, err := p.CurveAuthority(mint)
	require.NoError(t, err)
	b, err := p.CurveAuthority(mint)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := p.CurveAuthority(solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.NotEqual(t, a, other)

	global, err := p.GlobalAddress()
	require.NoError(t, err)
	assert.NotEqual(t, global, reserve)
}

func TestCredential(t *testing.T) {
	w := solana.NewWallet()
	msg := payload{Mint: solana.NewWallet().PublicKey(), Amount: 7}

	cred, err := SignMessage(w.PrivateKey, "trade", msg)
	require.NoError(t, err)
	assert.Equal(t, w.PublicKey(), cred.Signer)

	require.NoError(t, cred.VerifyMessage("trade", msg))
	require.NoError(t, cred.RequireSigner(w.PublicKey()))

	assert.ErrorIs(t, cred.VerifyMessage("withdraw", msg), ErrInvalidSignature, "domains are separated")

	tampered := msg
	tampered.Amount++
	assert.ErrorIs(t, cred.VerifyMessage("trade", tampered), ErrInvalidSignature)

	assert.ErrorIs(t, cred.RequireSigner(solana.NewWallet().PublicKey()), ErrUnauthorized)

	forged := cred
	forged.Signer = solana.NewWallet().PublicKey()
	assert.ErrorIs(t, forged.VerifyMessage("trade", msg), ErrInvalidSignature)
}
