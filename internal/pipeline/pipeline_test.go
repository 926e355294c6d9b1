package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"algo-trader/internal/models"
	"algo-trader/internal/risk"
	"algo-trader/internal/sizing"
)

type stubStrategy struct {
	id      string
	signals []*models.OrderSignal
}

func (s *stubStrategy) OnTick(tick models.Tick) []*models.OrderSignal {
	out := make([]*models.OrderSignal, len(s.signals))
	for i, sig := range s.signals {
		out[i] = sig.Clone()
	}
	return out
}

func (s *stubStrategy) StrategyID() string { return s.id }

type positionMap map[string]models.Position

func (m positionMap) Position(symbol string) (models.Position, bool) {
	pos, ok := m[symbol]
	return pos, ok
}

func testTick() models.Tick {
	return models.Tick{
		Symbol: "BTCUSDT",
		Price:  100,
		TS:     time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
	}
}

func prepare(t *testing.T, strat *stubStrategy, positions positionMap, trace *SignalTrace) []*models.OrderSignal {
	t.Helper()
	riskMgr := risk.NewManager(risk.Config{}, 10000, zerolog.Nop())
	return PrepareSignals(
		testTick(),
		strat,
		positions,
		riskMgr,
		sizing.FixedQtySizer{Qty: 5},
		10000,
		map[string]float64{},
		trace,
		zerolog.Nop(),
	)
}

func TestPrepareSignalsAssignsDeterministicIDs(t *testing.T) {
	strat := &stubStrategy{id: "test_strat", signals: []*models.OrderSignal{
		{Symbol: "BTCUSDT", Side: models.SideBuy, Reason: "cross_up"},
	}}

	first := prepare(t, strat, positionMap{}, nil)
	second := prepare(t, strat, positionMap{}, nil)

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("got %d and %d signals, want 1 each", len(first), len(second))
	}
	if first[0].ClientOrderID == "" {
		t.Fatal("client order id not assigned")
	}
	if first[0].ClientOrderID != second[0].ClientOrderID {
		t.Errorf("same intent produced different ids: %s vs %s",
			first[0].ClientOrderID, second[0].ClientOrderID)
	}
	if !strings.HasPrefix(first[0].ClientOrderID, "za_") {
		t.Errorf("id %q missing prefix", first[0].ClientOrderID)
	}
}

func TestPrepareSignalsDistinctIDsPerIntent(t *testing.T) {
	strat := &stubStrategy{id: "test_strat", signals: []*models.OrderSignal{
		{Symbol: "BTCUSDT", Side: models.SideBuy, Reason: "cross_up"},
		{Symbol: "BTCUSDT", Side: models.SideBuy, Reason: "cross_up"},
	}}

	signals := prepare(t, strat, positionMap{}, nil)
	if len(signals) != 2 {
		t.Fatalf("got %d signals, want 2", len(signals))
	}
	if signals[0].ClientOrderID == signals[1].ClientOrderID {
		t.Error("distinct intents in one tick share a client order id")
	}
}

func TestPrepareSignalsKeepsExistingID(t *testing.T) {
	strat := &stubStrategy{id: "test_strat", signals: []*models.OrderSignal{
		{Symbol: "BTCUSDT", Side: models.SideBuy, Reason: "retry", ClientOrderID: "za_preassigned"},
	}}

	signals := prepare(t, strat, positionMap{}, nil)
	if len(signals) != 1 {
		t.Fatalf("got %d signals, want 1", len(signals))
	}
	if signals[0].ClientOrderID != "za_preassigned" {
		t.Errorf("pre-assigned id overwritten: %s", signals[0].ClientOrderID)
	}
}

func TestPrepareSignalsFillsPriceFromTick(t *testing.T) {
	strat := &stubStrategy{id: "test_strat", signals: []*models.OrderSignal{
		{Symbol: "BTCUSDT", Side: models.SideBuy},
	}}

	signals := prepare(t, strat, positionMap{}, nil)
	if len(signals) != 1 {
		t.Fatalf("got %d signals, want 1", len(signals))
	}
	if signals[0].Price != 100 {
		t.Errorf("Price = %v, want tick price 100", signals[0].Price)
	}
}

func TestPrepareSignalsPrefersLastKnownPrice(t *testing.T) {
	strat := &stubStrategy{id: "test_strat", signals: []*models.OrderSignal{
		{Symbol: "ETHUSDT", Side: models.SideBuy},
	}}
	riskMgr := risk.NewManager(risk.Config{}, 10000, zerolog.Nop())

	signals := PrepareSignals(
		testTick(),
		strat,
		positionMap{},
		riskMgr,
		sizing.FixedQtySizer{Qty: 5},
		10000,
		map[string]float64{"ETHUSDT": 2000},
		nil,
		zerolog.Nop(),
	)
	if len(signals) != 1 {
		t.Fatalf("got %d signals, want 1", len(signals))
	}
	if signals[0].Price != 2000 {
		t.Errorf("Price = %v, want last known 2000", signals[0].Price)
	}
}

func TestTraceFunnelInvariant(t *testing.T) {
	strat := &stubStrategy{id: "test_strat", signals: []*models.OrderSignal{
		{Symbol: "BTCUSDT", Side: models.SideBuy, Reason: "a"},
		{Symbol: "BTCUSDT", Side: models.SideSell, Reason: "b"}, // dropped: no position
		{Symbol: "BTCUSDT", Side: models.SideBuy, Reason: "c"},
	}}

	var trace SignalTrace
	signals := prepare(t, strat, positionMap{}, &trace)

	if trace.Raw != 3 {
		t.Errorf("Raw = %d, want 3", trace.Raw)
	}
	if trace.AfterSizing != 2 || trace.DroppedBySizing != 1 {
		t.Errorf("AfterSizing = %d DroppedBySizing = %d, want 2 and 1",
			trace.AfterSizing, trace.DroppedBySizing)
	}
	if trace.AfterRisk != 2 || trace.DroppedByRisk != 0 {
		t.Errorf("AfterRisk = %d DroppedByRisk = %d, want 2 and 0",
			trace.AfterRisk, trace.DroppedByRisk)
	}
	if trace.Raw < trace.AfterSizing || trace.AfterSizing < trace.AfterRisk {
		t.Error("funnel invariant violated")
	}
	if len(signals) != trace.AfterRisk {
		t.Errorf("returned %d signals, trace says %d", len(signals), trace.AfterRisk)
	}
}

func TestExecuteSignalsStopsOnError(t *testing.T) {
	calls := 0
	exec := executorFunc(func(sig *models.OrderSignal) (models.ExecResult, error) {
		calls++
		if calls == 2 {
			return models.ExecResult{}, errBoom
		}
		return models.ExecResult{Status: models.StatusFilled}, nil
	})

	signals := []*models.OrderSignal{
		{Symbol: "BTCUSDT", Side: models.SideBuy},
		{Symbol: "BTCUSDT", Side: models.SideBuy},
		{Symbol: "BTCUSDT", Side: models.SideBuy},
	}
	results, err := ExecuteSignals(signals, exec)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("executed %d signals, want 2", calls)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

type executorFunc func(sig *models.OrderSignal) (models.ExecResult, error)

func (f executorFunc) Execute(sig *models.OrderSignal) (models.ExecResult, error) {
	return f(sig)
}

var errBoom = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
