package engine

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"algo-trader/internal/broker"
	"algo-trader/internal/journal"
	"algo-trader/internal/models"
	"algo-trader/internal/risk"
	"algo-trader/internal/sizing"
)

// scriptedStrategy emits a preset signal at given tick indexes.
type scriptedStrategy struct {
	script map[int]*models.OrderSignal
	tick   int
}

func (s *scriptedStrategy) OnTick(tick models.Tick) []*models.OrderSignal {
	defer func() { s.tick++ }()
	if sig, ok := s.script[s.tick]; ok {
		return []*models.OrderSignal{sig.Clone()}
	}
	return nil
}

func (s *scriptedStrategy) StrategyID() string { return "scripted" }

func newEngineForTest(t *testing.T, ticks []models.Tick, script map[int]*models.OrderSignal, riskCfg risk.Config, equityBase float64, withJournal bool) (*TradingEngine, *broker.PaperBroker) {
	t.Helper()

	paperBroker, err := broker.NewPaperBroker(broker.PaperBrokerConfig{Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("NewPaperBroker: %v", err)
	}
	t.Cleanup(func() { paperBroker.Close() })

	var jnl *journal.Journal
	if withJournal {
		jnl = journal.New(t.TempDir(), "test", zerolog.Nop())
	}

	eng := New(Options{
		Source:     NewSliceEventSource(ticks),
		Strategy:   &scriptedStrategy{script: script},
		Sizer:      sizing.FixedQtySizer{Qty: 5},
		Risk:       risk.NewManager(riskCfg, equityBase, zerolog.Nop()),
		Broker:     paperBroker,
		Journal:    jnl,
		EquityBase: equityBase,
		Logger:     zerolog.Nop(),
	})
	return eng, paperBroker
}

func ticksWithPrices(day time.Time, prices ...float64) []models.Tick {
	ticks := make([]models.Tick, len(prices))
	for i, p := range prices {
		ticks[i] = models.Tick{
			Symbol: "BTCUSDT",
			Price:  p,
			TS:     day.Add(time.Duration(i) * time.Minute),
		}
	}
	return ticks
}

func TestEngineRoundTrip(t *testing.T) {
	day := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	ticks := ticksWithPrices(day, 100, 110, 120)
	script := map[int]*models.OrderSignal{
		0: {Symbol: "BTCUSDT", Side: models.SideBuy, Qty: 1, Reason: "entry"},
		2: {Symbol: "BTCUSDT", Side: models.SideSell, Qty: 1, Reason: "exit"},
	}

	eng, _ := newEngineForTest(t, ticks, script, risk.Config{}, 10000, true)
	result, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	s := result.Summary
	if s.TicksProcessed != 3 {
		t.Errorf("TicksProcessed = %d, want 3", s.TicksProcessed)
	}
	if s.Fills != 2 {
		t.Errorf("Fills = %d, want 2", s.Fills)
	}
	if s.RealizedPnL != 20 {
		t.Errorf("RealizedPnL = %v, want 20", s.RealizedPnL)
	}
	if s.FinalEquity != 10020 {
		t.Errorf("FinalEquity = %v, want 10020", s.FinalEquity)
	}
	if len(s.OpenPositions) != 0 {
		t.Errorf("OpenPositions = %+v, want none", s.OpenPositions)
	}
	if s.Report.ClosedTrades != 1 || s.Report.NetPnL != 20 {
		t.Errorf("Report = %+v, want 1 closed trade with net 20", s.Report)
	}

	for _, path := range []string{result.Artifacts.TradesPath, result.Artifacts.EquityPath} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("artifact %s not written: %v", path, err)
		}
	}
}

func TestEngineDuplicateIntentFillsOnce(t *testing.T) {
	day := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	// Two identical ticks: same timestamp, so the scripted intents hash
	// to the same client order id.
	ticks := []models.Tick{
		{Symbol: "BTCUSDT", Price: 100, TS: day},
		{Symbol: "BTCUSDT", Price: 100, TS: day},
	}
	script := map[int]*models.OrderSignal{
		0: {Symbol: "BTCUSDT", Side: models.SideBuy, Qty: 1, Reason: "entry"},
		1: {Symbol: "BTCUSDT", Side: models.SideBuy, Qty: 1, Reason: "entry"},
	}

	eng, paperBroker := newEngineForTest(t, ticks, script, risk.Config{}, 10000, false)
	result, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Summary.Fills != 1 || result.Summary.Duplicates != 1 {
		t.Errorf("Fills = %d Duplicates = %d, want 1 and 1",
			result.Summary.Fills, result.Summary.Duplicates)
	}
	pos, _ := paperBroker.Position("BTCUSDT")
	if pos.Qty != 1 {
		t.Errorf("position qty = %v, want 1", pos.Qty)
	}
}

func TestEngineEmitsSignalFunnelTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	day := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	ticks := ticksWithPrices(day, 100, 110)
	script := map[int]*models.OrderSignal{
		0: {Symbol: "BTCUSDT", Side: models.SideBuy, Qty: 1, Reason: "entry"},
	}

	paperBroker, err := broker.NewPaperBroker(broker.PaperBrokerConfig{Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("NewPaperBroker: %v", err)
	}
	defer paperBroker.Close()

	eng := New(Options{
		Source:     NewSliceEventSource(ticks),
		Strategy:   &scriptedStrategy{script: script},
		Sizer:      sizing.FixedQtySizer{Qty: 5},
		Risk:       risk.NewManager(risk.Config{}, 10000, zerolog.Nop()),
		Broker:     paperBroker,
		EquityBase: 10000,
		Logger:     logger,
	})
	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"event":"signal_trace"`) {
		t.Error("signal funnel trace not logged on a tick that produced a signal")
	}
	if !strings.Contains(out, `"after_risk":1`) {
		t.Errorf("funnel counters missing from trace output:\n%s", out)
	}
}

func TestEngineDayBoundaryResetsBreaker(t *testing.T) {
	day1 := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	ticks := []models.Tick{
		{Symbol: "BTCUSDT", Price: 100, TS: day1},
		{Symbol: "BTCUSDT", Price: 50, TS: day1.Add(time.Minute)},
		{Symbol: "BTCUSDT", Price: 50, TS: day1.Add(2 * time.Minute)},
		{Symbol: "BTCUSDT", Price: 50, TS: day2},
	}
	script := map[int]*models.OrderSignal{
		0: {Symbol: "BTCUSDT", Side: models.SideBuy, Qty: 1, Reason: "entry"},
		2: {Symbol: "BTCUSDT", Side: models.SideBuy, Qty: 1, Reason: "add"},
		3: {Symbol: "BTCUSDT", Side: models.SideBuy, Qty: 1, Reason: "add"},
	}

	// 1 unit bought at 100 marked at 50 is a 5% loss on a 1000 base;
	// the 1% breaker trips on tick 2 and blocks the tick-3 intent.
	eng, _ := newEngineForTest(t, ticks, script, risk.Config{MaxDailyLossPct: 0.01}, 1000, false)
	result, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	s := result.Summary
	if s.Trace.DroppedByRisk != 1 {
		t.Errorf("DroppedByRisk = %d, want 1 (intent during blocked day)", s.Trace.DroppedByRisk)
	}
	// The day-2 intent fills because the boundary reset the breaker.
	if s.Fills != 2 {
		t.Errorf("Fills = %d, want 2", s.Fills)
	}
}
