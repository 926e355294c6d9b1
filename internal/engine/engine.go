package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"algo-trader/internal/broker"
	"algo-trader/internal/journal"
	"algo-trader/internal/logging"
	"algo-trader/internal/metrics"
	"algo-trader/internal/models"
	"algo-trader/internal/pipeline"
	"algo-trader/internal/risk"
	"algo-trader/internal/sizing"
	"algo-trader/internal/strategy"
	"algo-trader/internal/telemetry"
)

// Options wires a trading engine. Journal is optional; everything else
// is required.
type Options struct {
	Source     EventSource
	Strategy   strategy.Strategy
	Sizer      sizing.Sizer
	Risk       *risk.Manager
	Broker     broker.Broker
	Journal    *journal.Journal
	EquityBase float64
	MaxEvents  int
	Logger     zerolog.Logger
}

// Summary is the aggregate outcome of a run.
type Summary struct {
	TicksProcessed int
	Trace          pipeline.SignalTrace
	Fills          int
	Duplicates     int
	Blocked        int
	RealizedPnL    float64
	UnrealizedPnL  float64
	FinalEquity    float64
	OpenPositions  []models.Position
	Report         metrics.Report
}

// Result bundles the summary with the artifact paths written by the
// journal, when one was configured.
type Result struct {
	Summary   Summary
	Artifacts journal.Artifacts
}

// TradingEngine runs one strategy over one event source. It is
// single-threaded by construction: one tick is fully processed,
// including execution and risk updates, before the next is pulled.
type TradingEngine struct {
	opts   Options
	logger zerolog.Logger

	lastPrices map[string]float64
	currentDay time.Time
	realized   float64

	fills      int
	duplicates int
	blocked    int
	inPosition int
	trace      pipeline.SignalTrace
}

// New creates a trading engine from the given options.
func New(opts Options) *TradingEngine {
	return &TradingEngine{
		opts:       opts,
		logger:     logging.WithStrategy(opts.Logger, opts.Strategy.StrategyID()),
		lastPrices: make(map[string]float64),
	}
}

// Run drives the event source to completion and returns the run
// summary. Artifacts are flushed even when the loop fails, so a
// partial run still leaves an inspectable trail.
func (e *TradingEngine) Run(ctx context.Context) (Result, error) {
	processed, loopErr := RunLoop(ctx, e.opts.Source, e.opts.MaxEvents, e.onTick, e.logger)

	unrealized := e.opts.Broker.UnrealizedPnL()
	summary := Summary{
		TicksProcessed: processed,
		Trace:          e.trace,
		Fills:          e.fills,
		Duplicates:     e.duplicates,
		Blocked:        e.blocked,
		RealizedPnL:    e.realized,
		UnrealizedPnL:  unrealized,
		FinalEquity:    e.opts.EquityBase + e.realized + unrealized,
		OpenPositions:  openPositions(e.opts.Broker),
	}

	result := Result{Summary: summary}
	if e.opts.Journal != nil {
		report := metrics.Compute(e.opts.Journal.Trades(), e.opts.Journal.EquityCurve(), e.opts.EquityBase)
		if processed > 0 {
			report.Exposure = float64(e.inPosition) / float64(processed)
		}
		result.Summary.Report = report

		arts, err := e.opts.Journal.Flush()
		if err != nil {
			e.logger.Error().Err(err).Msg("Failed to write run artifacts")
			if loopErr == nil {
				loopErr = err
			}
		}
		result.Artifacts = arts
	}

	e.logger.Info().
		Int("ticks", processed).
		Int("fills", e.fills).
		Int("duplicates", e.duplicates).
		Float64("realized_pnl", e.realized).
		Float64("unrealized_pnl", unrealized).
		Msg("Run finished")
	return result, loopErr
}

func (e *TradingEngine) onTick(tick models.Tick) error {
	e.rollDayIfNeeded(tick.TS)

	e.lastPrices[tick.Symbol] = tick.Price
	e.opts.Broker.MarkPrice(tick.Symbol, tick.Price)
	telemetry.TicksProcessed.Inc()

	before := e.trace
	signals := pipeline.PrepareSignals(
		tick,
		e.opts.Strategy,
		e.opts.Broker,
		e.opts.Risk,
		e.opts.Sizer,
		e.opts.EquityBase,
		e.lastPrices,
		&e.trace,
		e.logger,
	)
	telemetry.SignalsRaw.Add(float64(e.trace.Raw - before.Raw))
	telemetry.SignalsDropped.WithLabelValues("sizing").Add(float64(e.trace.DroppedBySizing - before.DroppedBySizing))
	telemetry.SignalsDropped.WithLabelValues("risk").Add(float64(e.trace.DroppedByRisk - before.DroppedByRisk))
	if e.trace.Raw > before.Raw {
		logging.LogSignalTrace(e.logger,
			e.trace.Raw-before.Raw,
			e.trace.AfterSizing-before.AfterSizing,
			e.trace.AfterRisk-before.AfterRisk)
	}

	results, err := pipeline.ExecuteSignals(signals, e.opts.Broker)
	for _, res := range results {
		e.record(res, tick.TS)
	}
	if err != nil {
		return err
	}

	e.updateRisk(tick.TS)
	if len(openPositions(e.opts.Broker)) > 0 {
		e.inPosition++
	}
	return nil
}

// openPositions filters out flattened entries, which the broker keeps
// so repeat-traded symbols stay distinguishable from untraded ones.
func openPositions(b broker.Broker) []models.Position {
	var open []models.Position
	for _, pos := range b.Positions() {
		if pos.Qty != 0 {
			open = append(open, pos)
		}
	}
	return open
}

func (e *TradingEngine) record(res models.ExecResult, ts time.Time) {
	switch res.Status {
	case models.StatusFilled:
		e.fills++
		e.realized += res.RealizedDelta
		telemetry.OrdersFilled.Inc()
		logging.LogFill(e.logger, res)
		if e.opts.Journal != nil {
			e.opts.Journal.RecordFill(res, ts)
		}
	case models.StatusDuplicate:
		e.duplicates++
		telemetry.OrdersDuplicate.Inc()
		logging.LogDuplicate(e.logger, res.ClientOrderID)
	case models.StatusBlocked:
		e.blocked++
		telemetry.OrdersBlocked.Inc()
	}
}

// updateRisk feeds the day's realized plus unrealized P&L into the risk
// manager after every tick so the breaker sees drawdown from open
// positions, not just closed trades.
func (e *TradingEngine) updateRisk(ts time.Time) {
	daily := e.opts.Broker.RealizedPnLToday() + e.opts.Broker.UnrealizedPnL()
	e.opts.Risk.SetDailyPnl(daily)

	telemetry.DailyPnL.Set(daily)
	if e.opts.Risk.Blocked() {
		telemetry.BreakerTripped.Set(1)
	} else {
		telemetry.BreakerTripped.Set(0)
	}
	if e.opts.Journal != nil {
		e.opts.Journal.RecordEquity(ts, e.opts.EquityBase+e.realized+e.opts.Broker.UnrealizedPnL())
	}
}

// rollDayIfNeeded resets daily P&L and the risk breaker when the tick
// timestamp crosses a UTC day boundary.
func (e *TradingEngine) rollDayIfNeeded(ts time.Time) {
	day := ts.UTC().Truncate(24 * time.Hour)
	if e.currentDay.IsZero() {
		e.currentDay = day
		return
	}
	if day.After(e.currentDay) {
		e.logger.Info().
			Time("from", e.currentDay).
			Time("to", day).
			Msg("Day boundary crossed, resetting daily state")
		e.opts.Broker.ResetDailyPnL()
		e.opts.Risk.ResetDailyState()
		e.currentDay = day
	}
}
