package sizing

// FixedQtySizer allows a constant quantity per trade regardless of
// price, position or equity.
type FixedQtySizer struct {
	Qty float64
}

func (s FixedQtySizer) MaxBuyQty(price, currentQty, equityBase float64) float64 {
	if s.Qty <= 0 {
		return 0
	}
	return s.Qty
}

func (s FixedQtySizer) MaxSellQty(price, currentQty, equityBase float64) float64 {
	if s.Qty <= 0 {
		return 0
	}
	return s.Qty
}
