// internal/curve/fees.go
package curve

const (
	// BasisPointsDenominator is 100% in basis points.
	BasisPointsDenominator uint64 = 10_000
	// MaxFeeBasisPoints caps platform + reserve fees at 30%.
	MaxFeeBasisPoints uint64 = 3_000
)

// Fees holds the two fee rates charged on every trade.
type Fees struct {
	PlatformBps uint64
	ReserveBps  uint64
}

// FeeSplit is the fee charged on one trade amount. Platform and Reserve are
// each computed from the full amount, so Total may exceed their sum by the
// rounding residue.
type FeeSplit struct {
	Total    uint64
	Platform uint64
	Reserve  uint64
}

// Validate enforces the fee cap. A sum that overflows counts as above the cap.
func (f Fees) Validate() error {
	total, err := checkedAdd(f.PlatformBps, f.ReserveBps)
	if err != nil || total > MaxFeeBasisPoints {
		return ErrFeeTooHigh
	}
	return nil
}

// Split computes the fees owed on amount.
func (f Fees) Split(amount uint64) (FeeSplit, error) {
	totalBps, err := checkedAdd(f.PlatformBps, f.ReserveBps)
	if err != nil {
		return FeeSplit{}, err
	}
	total, err := bpsOf(amount, totalBps)
	if err != nil {
		return FeeSplit{}, err
	}
	platform, err := bpsOf(amount, f.PlatformBps)
	if err != nil {
		return FeeSplit{}, err
	}
	reserve, err := bpsOf(amount, f.ReserveBps)
	if err != nil {
		return FeeSplit{}, err
	}
	return FeeSplit{Total: total, Platform: platform, Reserve: reserve}, nil
}

func bpsOf(amount, bps uint64) (uint64, error) {
	scaled, err := checkedMul(amount, bps)
	if err != nil {
		return 0, err
	}
	return scaled / BasisPointsDenominator, nil
}
