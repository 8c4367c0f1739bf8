// Package curve implements the constant-product bonding curve used by every
// tradable asset: the per-asset reserve state, the fee split, the reserve
// buyback and the one-way graduation transition.
//
// Everything here is pure integer arithmetic. Stored values are uint64, the
// reserve product is held in a 128-bit intermediate and every operation is
// checked: overflow, underflow and division by zero surface as
// ErrArithmeticOverflow or ErrArithmeticUnderflow, never as wraparound.
//
// Buy and Sell take a State by value and return the next State together with
// the amounts the settlement layer has to move. A failed call returns the
// input State untouched.
package curve
