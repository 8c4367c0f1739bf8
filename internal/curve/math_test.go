package curve

import (
	"math"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckedHelpers(t *testing.T) {
	_, err := checkedAdd(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)

	_, err = checkedSub(1, 2)
	assert.ErrorIs(t, err, ErrArithmeticUnderflow)

	_, err = checkedMul(math.MaxUint64, 2)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)

	_, err = floorDiv(uint256.NewInt(10), 0)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)

	q, err := floorDiv(uint256.NewInt(10), 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), q)
}

func TestProductUses128Bits(t *testing.T) {
	p, err := product(math.MaxUint64, math.MaxUint64)
	require.NoError(t, err)
	assert.False(t, p.IsUint64())
	assert.LessOrEqual(t, p.BitLen(), 128)

	_, err = floorDiv(p, 1)
	assert.ErrorIs(t, err, ErrArithmeticOverflow, "quotient wider than 64 bits is rejected")
}

func TestSwapOutFloorsOutput(t *testing.T) {
	newIn, newOut, out, err := swapOut(3, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), newIn)
	assert.Equal(t, uint64(2), out) // floor(10/4)
	assert.Equal(t, uint64(8), newOut)
}

// Releasing floor(out) instead of reserveOut - floor(k/newIn) leaves the
// rounding residue (one unit here) in the curve.
func TestSwapOutRoundsAgainstTrader(t *testing.T) {
	const vn, vt, in = 30_000_000_000, 1_000_000_000, 1_000_000_000

	newIn, newOut, out, err := swapOut(vn, vt, in)
	require.NoError(t, err)
	assert.Equal(t, uint64(32_258_064), out)
	assert.Equal(t, uint64(967_741_936), newOut)

	k := new(uint256.Int).Mul(uint256.NewInt(vn), uint256.NewInt(vt))
	quotient := new(uint256.Int).Div(k, uint256.NewInt(newIn)).Uint64()
	assert.Equal(t, uint64(967_741_935), quotient)
	assert.Equal(t, out+1, vt-quotient)

	after := new(uint256.Int).Mul(uint256.NewInt(newIn), uint256.NewInt(newOut))
	assert.True(t, after.Cmp(k) >= 0, "product never decreases")
}
