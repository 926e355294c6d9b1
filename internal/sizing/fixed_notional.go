package sizing

// FixedNotionalSizer targets a fixed notional per trade:
// qty = TradeNotional / price. Sells are additionally capped at the
// current position, since paper and backtest modes never short.
type FixedNotionalSizer struct {
	TradeNotional float64
}

func (s FixedNotionalSizer) MaxBuyQty(price, currentQty, equityBase float64) float64 {
	if s.TradeNotional <= 0 || price <= 0 {
		return 0
	}
	return s.TradeNotional / price
}

func (s FixedNotionalSizer) MaxSellQty(price, currentQty, equityBase float64) float64 {
	if currentQty <= 0 {
		return 0
	}
	if s.TradeNotional <= 0 || price <= 0 {
		return currentQty
	}
	qty := s.TradeNotional / price
	if qty > currentQty {
		return currentQty
	}
	return qty
}
