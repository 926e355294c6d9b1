package sizing

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProperty_PctEquityBuyNeverExceedsAllocation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("resulting notional stays within the allocation", prop.ForAll(
		func(pct, price, currentQty, equityBase float64) bool {
			sizer := PctEquitySizer{PositionPct: pct}
			maxQty := sizer.MaxBuyQty(price, currentQty, equityBase)
			if maxQty < 0 {
				return false
			}
			// Buying maxQty on top of the current position must not
			// push the notional past the allocation, modulo float
			// rounding.
			total := (currentQty + maxQty) * price
			return total <= equityBase*pct*(1+1e-9)
		},
		gen.Float64Range(0.01, 1.0),
		gen.Float64Range(0.5, 100000),
		gen.Float64Range(0, 1000),
		gen.Float64Range(100, 1e7),
	))

	properties.Property("headroom shrinks as the position grows", prop.ForAll(
		func(pct, price, qtyA, qtyB, equityBase float64) bool {
			sizer := PctEquitySizer{PositionPct: pct}
			lo, hi := qtyA, qtyB
			if lo > hi {
				lo, hi = hi, lo
			}
			return sizer.MaxBuyQty(price, lo, equityBase) >= sizer.MaxBuyQty(price, hi, equityBase)
		},
		gen.Float64Range(0.01, 1.0),
		gen.Float64Range(0.5, 100000),
		gen.Float64Range(0, 1000),
		gen.Float64Range(0, 1000),
		gen.Float64Range(100, 1e7),
	))

	properties.TestingRun(t)
}

func TestProperty_FixedNotionalQtyMatchesNotional(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("buy quantity times price equals the trade notional", prop.ForAll(
		func(notional, price float64) bool {
			sizer := FixedNotionalSizer{TradeNotional: notional}
			qty := sizer.MaxBuyQty(price, 0, 0)
			diff := qty*price - notional
			if diff < 0 {
				diff = -diff
			}
			return diff <= notional*1e-9
		},
		gen.Float64Range(1, 1e6),
		gen.Float64Range(0.01, 1e6),
	))

	properties.TestingRun(t)
}
