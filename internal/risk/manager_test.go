package risk

import (
	"testing"

	"github.com/rs/zerolog"

	"algo-trader/internal/models"
)

func newTestManager(cfg Config, equityBase float64) *Manager {
	return NewManager(cfg, equityBase, zerolog.Nop())
}

func TestBreakerTripsOnLossRatio(t *testing.T) {
	m := newTestManager(Config{MaxDailyLossPct: 0.02}, 10000)

	m.SetDailyPnl(-100) // 1% loss
	if m.Blocked() {
		t.Fatal("breaker tripped below the limit")
	}

	m.SetDailyPnl(-300) // 3% loss
	if !m.Blocked() {
		t.Fatal("breaker did not trip above the limit")
	}
}

func TestBreakerLatchesUntilReset(t *testing.T) {
	m := newTestManager(Config{MaxDailyLossPct: 0.02}, 10000)

	m.SetDailyPnl(-500)
	if !m.Blocked() {
		t.Fatal("breaker did not trip")
	}

	// Recovery within the day does not unblock.
	m.SetDailyPnl(100)
	if !m.Blocked() {
		t.Fatal("breaker released on recovery without a reset")
	}

	m.ResetDailyState()
	if m.Blocked() {
		t.Fatal("breaker still blocked after reset")
	}
	if m.DailyPnl() != 0 {
		t.Errorf("DailyPnl = %v after reset, want 0", m.DailyPnl())
	}
}

func TestBreakerDisabledWhenLimitUnset(t *testing.T) {
	m := newTestManager(Config{}, 10000)
	m.SetDailyPnl(-1e9)
	if m.Blocked() {
		t.Fatal("breaker tripped with no configured limit")
	}
}

func TestBreakerRawLossFallbackWithoutEquityBase(t *testing.T) {
	m := newTestManager(Config{MaxDailyLossPct: 50}, 0)
	m.SetDailyPnl(-40)
	if m.Blocked() {
		t.Fatal("tripped below the raw loss limit")
	}
	m.SetDailyPnl(-60)
	if !m.Blocked() {
		t.Fatal("did not trip above the raw loss limit")
	}
}

func TestFilterSignalsDropsAllWhileBlocked(t *testing.T) {
	m := newTestManager(Config{MaxDailyLossPct: 0.01}, 10000)
	m.SetDailyPnl(-200)

	signals := []*models.OrderSignal{
		{Symbol: "BTCUSDT", Side: models.SideBuy, Qty: 1, Price: 100},
	}
	if got := m.FilterSignals(signals); got != nil {
		t.Fatalf("got %d signals while blocked, want none", len(got))
	}
}

func TestClipNeverMutatesInput(t *testing.T) {
	m := newTestManager(Config{MaxPositionPct: 0.1}, 10000)

	original := &models.OrderSignal{Symbol: "BTCUSDT", Side: models.SideBuy, Qty: 50, Price: 100}
	passed := m.FilterSignals([]*models.OrderSignal{original})

	if len(passed) != 1 {
		t.Fatalf("got %d signals, want 1", len(passed))
	}
	// Limit is 10000*0.1/100 = 10.
	if passed[0].Qty != 10 {
		t.Errorf("clipped Qty = %v, want 10", passed[0].Qty)
	}
	if passed[0] == original {
		t.Error("clipped signal must be a new instance")
	}
	if original.Qty != 50 {
		t.Errorf("input signal mutated: Qty = %v, want 50", original.Qty)
	}
}

func TestClipPassesUnclippedSignalThrough(t *testing.T) {
	m := newTestManager(Config{MaxPositionPct: 0.1}, 10000)

	original := &models.OrderSignal{Symbol: "BTCUSDT", Side: models.SideBuy, Qty: 5, Price: 100}
	passed := m.FilterSignals([]*models.OrderSignal{original})

	if len(passed) != 1 || passed[0] != original {
		t.Fatal("signal within the limit must pass through as the same instance")
	}
}

func TestClipDirectQtyFallbackWithoutEquityBase(t *testing.T) {
	m := newTestManager(Config{MaxPositionPct: 3}, 0)

	original := &models.OrderSignal{Symbol: "BTCUSDT", Side: models.SideBuy, Qty: 5, Price: 100}
	passed := m.FilterSignals([]*models.OrderSignal{original})

	if len(passed) != 1 {
		t.Fatalf("got %d signals, want 1", len(passed))
	}
	if passed[0].Qty != 3 {
		t.Errorf("Qty = %v, want direct cap 3", passed[0].Qty)
	}
}
