package cli

import (
	"fmt"
	"time"

	"algo-trader/internal/broker"
	"algo-trader/internal/engine"
	"algo-trader/internal/journal"
	"algo-trader/internal/risk"
	"algo-trader/internal/sizing"
	"algo-trader/internal/strategy"
	"algo-trader/pkg/utils"
)

// buildEngine assembles an engine from app configuration around the
// given event source. withLedger selects durable idempotency; backtests
// run without it so replays never collide with live state.
func (a *App) buildEngine(source engine.EventSource, withLedger bool) (*engine.TradingEngine, *broker.PaperBroker, error) {
	strat, err := strategy.Build(a.Config.Strategy)
	if err != nil {
		return nil, nil, err
	}
	sizer := sizing.Build(a.Config.Sizing)
	riskMgr := risk.NewManager(a.Config.Risk, a.Config.EquityBase, a.Logger)

	brokerCfg := broker.PaperBrokerConfig{Logger: a.Logger}
	if withLedger && a.Config.Ledger.Enabled {
		brokerCfg.LedgerPath = a.Config.Ledger.Path
	}
	paperBroker, err := broker.NewPaperBroker(brokerCfg)
	if err != nil {
		return nil, nil, err
	}

	var jnl *journal.Journal
	if a.Config.Output.Dir != "" {
		runID := time.Now().UTC().Format("20060102T150405")
		jnl = journal.New(a.Config.Output.Dir, runID, a.Logger)
	}

	eng := engine.New(engine.Options{
		Source:     source,
		Strategy:   strat,
		Sizer:      sizer,
		Risk:       riskMgr,
		Broker:     paperBroker,
		Journal:    jnl,
		EquityBase: a.Config.EquityBase,
		MaxEvents:  a.Config.MaxTicks,
		Logger:     a.Logger,
	})
	return eng, paperBroker, nil
}

// printSummary renders a run result for humans or machines.
func printSummary(output *Output, result engine.Result) error {
	if output.IsJSON() {
		return output.JSON(result.Summary)
	}

	s := result.Summary
	output.Bold("Run summary")
	output.Printf("  ticks processed   %d\n", s.TicksProcessed)
	output.Printf("  signals raw       %d\n", s.Trace.Raw)
	output.Printf("  after sizing      %d\n", s.Trace.AfterSizing)
	output.Printf("  after risk        %d\n", s.Trace.AfterRisk)
	output.Printf("  fills             %d\n", s.Fills)
	output.Printf("  duplicates        %d\n", s.Duplicates)
	output.Printf("  blocked           %d\n", s.Blocked)
	output.Printf("  realized pnl      %s\n", output.PnL(utils.FormatPnL(s.RealizedPnL), s.RealizedPnL))
	output.Printf("  unrealized pnl    %s\n", output.PnL(utils.FormatPnL(s.UnrealizedPnL), s.UnrealizedPnL))
	output.Printf("  final equity      %s\n", utils.FormatMoney(s.FinalEquity))

	if len(s.OpenPositions) > 0 {
		output.Bold("Open positions")
		for _, pos := range s.OpenPositions {
			output.Printf("  %-12s qty %s avg %s\n",
				pos.Symbol, utils.FormatQuantity(pos.Qty), utils.FormatMoney(pos.AvgPrice))
		}
	}

	if s.Report.Trades > 0 {
		r := s.Report
		output.Bold("Performance")
		output.Printf("  closed trades     %d\n", r.ClosedTrades)
		output.Printf("  win rate          %s\n", utils.FormatPercent(r.WinRate))
		output.Printf("  profit factor     %.2f\n", r.ProfitFactor)
		output.Printf("  expectancy        %s\n", utils.FormatMoney(r.Expectancy))
		output.Printf("  max drawdown      %s\n", utils.FormatPercent(-r.MaxDrawdown))
		output.Printf("  exposure          %s\n", utils.FormatPercent(r.Exposure))
		output.Printf("  turnover          %.2fx\n", r.Turnover)
	}

	if result.Artifacts.TradesPath != "" {
		output.Dim(fmt.Sprintf("artifacts: %s, %s", result.Artifacts.TradesPath, result.Artifacts.EquityPath))
	}
	return nil
}
