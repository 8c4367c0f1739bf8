package curve

import (
	"github.com/holiman/uint256"
)

// productBits bounds the reserve product to a 128-bit intermediate.
const productBits = 128

func checkedAdd(a, b uint64) (uint64, error) {
	sum := new(uint256.Int).Add(uint256.NewInt(a), uint256.NewInt(b))
	if !sum.IsUint64() {
		return 0, ErrArithmeticOverflow
	}
	return sum.Uint64(), nil
}

func checkedSub(a, b uint64) (uint64, error) {
	diff, underflow := new(uint256.Int).SubOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if underflow {
		return 0, ErrArithmeticUnderflow
	}
	return diff.Uint64(), nil
}

func checkedMul(a, b uint64) (uint64, error) {
	p, err := product(a, b)
	if err != nil {
		return 0, err
	}
	if !p.IsUint64() {
		return 0, ErrArithmeticOverflow
	}
	return p.Uint64(), nil
}

// product returns a*b as a 128-bit intermediate.
func product(a, b uint64) (*uint256.Int, error) {
	p, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow || p.BitLen() > productBits {
		return nil, ErrArithmeticOverflow
	}
	return p, nil
}

// floorDiv returns floor(n/d) narrowed back to uint64.
func floorDiv(n *uint256.Int, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrArithmeticOverflow
	}
	q := new(uint256.Int).Div(n, uint256.NewInt(d))
	if !q.IsUint64() {
		return 0, ErrArithmeticOverflow
	}
	return q.Uint64(), nil
}

// swapOut prices a constant-product swap that adds amountIn to reserveIn and
// releases floor(reserveOut*amountIn/(reserveIn+amountIn)) from reserveOut.
// Flooring the released amount keeps reserveIn*reserveOut from ever
// decreasing, so rounding residue stays in the curve.
func swapOut(reserveIn, reserveOut, amountIn uint64) (newIn, newOut, out uint64, err error) {
	newIn, err = checkedAdd(reserveIn, amountIn)
	if err != nil {
		return 0, 0, 0, err
	}
	num, err := product(reserveOut, amountIn)
	if err != nil {
		return 0, 0, 0, err
	}
	out, err = floorDiv(num, newIn)
	if err != nil {
		return 0, 0, 0, err
	}
	newOut, err = checkedSub(reserveOut, out)
	if err != nil {
		return 0, 0, 0, err
	}
	return newIn, newOut, out, nil
}
