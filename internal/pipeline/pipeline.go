// Package pipeline orchestrates the per-tick signal flow:
// Strategy -> Sizing -> Risk -> client-order-id assignment -> Broker.
// Runner, paper and backtest modes share this single implementation so
// their behavior cannot drift apart.
package pipeline

import (
	"github.com/rs/zerolog"

	"algo-trader/internal/models"
	"algo-trader/internal/risk"
	"algo-trader/internal/sizing"
	"algo-trader/internal/strategy"
)

// SignalTrace accumulates per-tick attrition counters. It is mutated
// only by PrepareSignals and never read back for control flow.
// Invariant: Raw >= AfterSizing >= AfterRisk >= 0, and the drop counts
// account for every discarded signal.
type SignalTrace struct {
	Raw             int
	AfterSizing     int
	AfterRisk       int
	DroppedBySizing int
	DroppedByRisk   int
}

// Executor is the broker capability the pipeline needs to execute
// accepted signals.
type Executor interface {
	Execute(sig *models.OrderSignal) (models.ExecResult, error)
}

// PrepareSignals converts one tick into zero or more executable,
// deduplicated signals. Steps: strategy emit, price fill-in, sizing,
// risk filter, deterministic client-order-id assignment. An empty
// result at any stage short-circuits. Signals that already carry a
// client order id keep it, so retried ticks preserve intent identity.
func PrepareSignals(
	tick models.Tick,
	strat strategy.Strategy,
	positions sizing.PositionReader,
	riskMgr *risk.Manager,
	sizer sizing.Sizer,
	equityBase float64,
	lastPrices map[string]float64,
	trace *SignalTrace,
	logger zerolog.Logger,
) []*models.OrderSignal {
	raw := strat.OnTick(tick)
	if trace != nil {
		trace.Raw += len(raw)
	}
	if len(raw) == 0 {
		return nil
	}

	for _, sig := range raw {
		if sig.Price > 0 {
			continue
		}
		if p, ok := lastPrices[sig.Symbol]; ok && p > 0 {
			sig.Price = p
		} else {
			sig.Price = tick.Price
		}
	}

	sized := sizing.SizeSignals(raw, positions, sizer, equityBase, logger)
	if trace != nil {
		trace.AfterSizing += len(sized)
		trace.DroppedBySizing += len(raw) - len(sized)
	}
	if len(sized) == 0 {
		return nil
	}

	passed := riskMgr.FilterSignals(sized)
	if trace != nil {
		trace.AfterRisk += len(passed)
		trace.DroppedByRisk += len(sized) - len(passed)
	}
	if len(passed) == 0 {
		return nil
	}

	strategyID := strat.StrategyID()
	for idx, sig := range passed {
		if sig.ClientOrderID != "" {
			continue
		}
		sig.ClientOrderID = MakeClientOrderID(
			strategyID,
			sig.Symbol,
			string(sig.Side),
			tick.TS,
			idx,
			sig.Reason,
		)
	}
	return passed
}

// ExecuteSignals executes each signal in the order given and collects
// the per-signal results. No batching or reordering: execution order is
// signal order, which is strategy emission order.
func ExecuteSignals(signals []*models.OrderSignal, broker Executor) ([]models.ExecResult, error) {
	if len(signals) == 0 {
		return nil, nil
	}
	results := make([]models.ExecResult, 0, len(signals))
	for _, sig := range signals {
		res, err := broker.Execute(sig)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
