package sizing

import "math"

// PctEquitySizer limits the notional a single symbol may occupy to
// PositionPct of the equity base. Buys are capped by remaining
// headroom; sells are unconstrained so a full unwind is always
// possible. The asymmetry is intentional: the policy limits new
// exposure, not exits.
type PctEquitySizer struct {
	PositionPct float64
}

func (s PctEquitySizer) MaxBuyQty(price, currentQty, equityBase float64) float64 {
	if s.PositionPct <= 0 || equityBase <= 0 || price <= 0 {
		return 0
	}
	maxNotional := equityBase * s.PositionPct
	currentNotional := math.Abs(currentQty * price)
	remaining := maxNotional - currentNotional
	if remaining <= 0 {
		return 0
	}
	return remaining / price
}

func (s PctEquitySizer) MaxSellQty(price, currentQty, equityBase float64) float64 {
	if currentQty <= 0 {
		return 0
	}
	return currentQty
}
