package indicators

import "algo-trader/internal/models"

// AttachMAFeatures annotates ticks in place with "ma_short" and
// "ma_long" features computed over the tick prices. Warmup positions
// carry NaN, which feature-aware strategies treat as "no value yet".
func AttachMAFeatures(ticks []models.Tick, shortPeriod, longPeriod int) error {
	prices := make([]float64, len(ticks))
	for i, t := range ticks {
		prices[i] = t.Price
	}

	short, err := SMA(prices, shortPeriod)
	if err != nil {
		return err
	}
	long, err := SMA(prices, longPeriod)
	if err != nil {
		return err
	}

	for i := range ticks {
		if ticks[i].Features == nil {
			ticks[i].Features = make(map[string]float64, 2)
		}
		ticks[i].Features["ma_short"] = short[i]
		ticks[i].Features["ma_long"] = long[i]
	}
	return nil
}
