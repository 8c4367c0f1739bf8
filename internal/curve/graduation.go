package curve

// Phase is the trading phase of a curve.
type Phase uint8

const (
	PhaseActive Phase = iota
	PhaseComplete
)

func (p Phase) String() string {
	if p == PhaseComplete {
		return "complete"
	}
	return "active"
}

// Phase reports whether the curve still trades.
func (s State) Phase() Phase {
	if s.Complete {
		return PhaseComplete
	}
	return PhaseActive
}

// Graduate applies the Active -> Complete transition. It is evaluated only
// after a successful buy; the returned flag is true when this call made the
// transition.
func Graduate(s State, threshold uint64) (State, bool) {
	if s.Complete || s.RealNativeReserves < threshold {
		return s, false
	}
	s.Complete = true
	return s, true
}
