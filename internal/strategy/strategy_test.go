package strategy

import (
	"testing"
	"time"

	"algo-trader/internal/errors"
	"algo-trader/internal/models"
)

func featureTick(ts time.Time, maShort, maLong float64) models.Tick {
	return models.Tick{
		Symbol: "BTCUSDT",
		Price:  100,
		TS:     ts,
		Features: map[string]float64{
			"ma_short": maShort,
			"ma_long":  maLong,
		},
	}
}

func TestBuildDefaultsToSimpleMA(t *testing.T) {
	strat, err := Build(Config{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if strat.StrategyID() != "simple_ma" {
		t.Errorf("StrategyID = %s, want simple_ma", strat.StrategyID())
	}
}

func TestBuildUnknownStrategyFailsFast(t *testing.T) {
	_, err := Build(Config{Type: "does_not_exist"})
	if !errors.Is(err, errors.ErrUnknownStrategy) {
		t.Errorf("err = %v, want ErrUnknownStrategy", err)
	}
}

func TestNamesIncludesBuiltins(t *testing.T) {
	names := Names()
	want := map[string]bool{"simple_ma": false, "tick_scalper": false}
	for _, name := range names {
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("builtin %s missing from Names()", name)
		}
	}
}

func TestSimpleMACrossoverSequence(t *testing.T) {
	strat := NewSimpleMA("simple_ma", map[string]float64{"cooldown_secs": 0})
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	// Short above long: buy.
	signals := strat.OnTick(featureTick(base, 105, 100))
	if len(signals) != 1 || signals[0].Side != models.SideBuy {
		t.Fatalf("signals = %+v, want one buy", signals)
	}
	if signals[0].Qty != 0 {
		t.Errorf("Qty = %v, want 0 so sizing decides", signals[0].Qty)
	}
	if signals[0].Reason != "ma_cross_up" {
		t.Errorf("Reason = %s", signals[0].Reason)
	}

	// Still above: no repeat while direction is unchanged.
	signals = strat.OnTick(featureTick(base.Add(time.Second), 106, 100))
	if len(signals) != 0 {
		t.Fatalf("signals = %+v, want none on unchanged direction", signals)
	}

	// Cross down: sell.
	signals = strat.OnTick(featureTick(base.Add(2*time.Second), 95, 100))
	if len(signals) != 1 || signals[0].Side != models.SideSell {
		t.Fatalf("signals = %+v, want one sell", signals)
	}
}

func TestSimpleMAMinGapFilter(t *testing.T) {
	strat := NewSimpleMA("simple_ma", map[string]float64{"min_ma_diff": 1, "cooldown_secs": 0})
	ts := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	if signals := strat.OnTick(featureTick(ts, 100.4, 100)); len(signals) != 0 {
		t.Errorf("signals = %+v, want none below the MA gap", signals)
	}
	if signals := strat.OnTick(featureTick(ts, 102, 100)); len(signals) != 1 {
		t.Errorf("signals = %+v, want one above the MA gap", signals)
	}
}

func TestSimpleMACooldownDebounces(t *testing.T) {
	strat := NewSimpleMA("simple_ma", map[string]float64{"cooldown_secs": 10})
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	if signals := strat.OnTick(featureTick(base, 105, 100)); len(signals) != 1 {
		t.Fatalf("signals = %+v, want initial buy", signals)
	}
	// Reverse cross inside the cooldown window is suppressed.
	if signals := strat.OnTick(featureTick(base.Add(5*time.Second), 95, 100)); len(signals) != 0 {
		t.Errorf("signals = %+v, want none inside cooldown", signals)
	}
	// Same cross after the cooldown fires.
	if signals := strat.OnTick(featureTick(base.Add(15*time.Second), 95, 100)); len(signals) != 1 {
		t.Errorf("signals = %+v, want sell after cooldown", signals)
	}
}

func TestSimpleMARollingWindowFallback(t *testing.T) {
	strat := NewSimpleMA("simple_ma", map[string]float64{
		"short_window": 2, "long_window": 4, "min_ma_diff": 0, "cooldown_secs": 0,
	})
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	prices := []float64{100, 100, 100, 100} // warmup, flat
	var signals []*models.OrderSignal
	for i, p := range prices {
		signals = strat.OnTick(models.Tick{Symbol: "BTCUSDT", Price: p, TS: base.Add(time.Duration(i) * time.Second)})
	}
	if len(signals) != 0 {
		t.Fatalf("signals = %+v on flat prices, want none", signals)
	}

	// A jump lifts the short MA above the long MA.
	signals = strat.OnTick(models.Tick{Symbol: "BTCUSDT", Price: 110, TS: base.Add(5 * time.Second)})
	if len(signals) != 1 || signals[0].Side != models.SideBuy {
		t.Fatalf("signals = %+v, want buy after jump", signals)
	}
}
