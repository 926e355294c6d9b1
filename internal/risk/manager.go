// Package risk provides the daily-loss circuit breaker and position
// clipping gate applied to sized signals.
package risk

import (
	"github.com/rs/zerolog"

	"algo-trader/internal/models"
)

// Config holds risk management configuration.
type Config struct {
	// MaxPositionPct is the fraction of the equity base a single
	// symbol's notional may occupy. <= 0 disables clipping.
	MaxPositionPct float64 `mapstructure:"max_position_pct"`
	// MaxDailyLossPct is the loss ratio that trips the daily breaker.
	// <= 0 disables the breaker.
	MaxDailyLossPct float64 `mapstructure:"max_daily_loss_pct"`
}

// Manager gates signals on daily P&L and position-size limits. It has
// two states: normal (signals pass, possibly clipped) and blocked (all
// signals rejected). Once blocked it stays blocked until
// ResetDailyState, even if the P&L recovers within the day.
type Manager struct {
	cfg        Config
	equityBase float64
	logger     zerolog.Logger

	dailyPnl    float64
	blocked     bool
	blockLogged bool
}

// NewManager creates a risk manager. equityBase <= 0 switches the
// breaker and clipping to raw-ratio / direct-quantity fallbacks.
func NewManager(cfg Config, equityBase float64, logger zerolog.Logger) *Manager {
	return &Manager{
		cfg:        cfg,
		equityBase: equityBase,
		logger:     logger,
	}
}

// SetDailyPnl updates the day's running P&L and trips the breaker when
// the loss ratio exceeds MaxDailyLossPct. The caller injects this after
// each fill or tick.
func (m *Manager) SetDailyPnl(pnl float64) {
	m.dailyPnl = pnl
	if m.cfg.MaxDailyLossPct <= 0 {
		return
	}

	lossRatio := -pnl
	if m.equityBase > 0 {
		lossRatio = -pnl / m.equityBase
	}
	if lossRatio > m.cfg.MaxDailyLossPct && !m.blocked {
		m.blocked = true
		if !m.blockLogged {
			m.logger.Warn().
				Float64("daily_pnl", pnl).
				Float64("loss_ratio", lossRatio).
				Float64("limit", m.cfg.MaxDailyLossPct).
				Msg("Daily loss limit reached, blocking all new signals")
			m.blockLogged = true
		}
	}
}

// DailyPnl returns the last injected daily P&L.
func (m *Manager) DailyPnl() float64 {
	return m.dailyPnl
}

// Blocked reports whether the daily breaker has tripped.
func (m *Manager) Blocked() bool {
	return m.blocked
}

// ResetDailyState clears the breaker at a day boundary. This is the
// only transition out of the blocked state.
func (m *Manager) ResetDailyState() {
	m.dailyPnl = 0
	m.blocked = false
	m.blockLogged = false
	m.logger.Info().Msg("Daily risk state reset")
}

// FilterSignals drops everything while blocked, otherwise clips each
// signal's quantity to the per-symbol notional limit. Clipping never
// mutates the input: a clipped signal is a new instance, an unclipped
// signal passes through unchanged.
func (m *Manager) FilterSignals(signals []*models.OrderSignal) []*models.OrderSignal {
	if m.blocked {
		return nil
	}
	if len(signals) == 0 {
		return nil
	}

	result := make([]*models.OrderSignal, 0, len(signals))
	for _, sig := range signals {
		result = append(result, m.clip(sig))
	}
	return result
}

func (m *Manager) clip(sig *models.OrderSignal) *models.OrderSignal {
	if m.cfg.MaxPositionPct <= 0 {
		return sig
	}

	maxQty := m.cfg.MaxPositionPct
	if m.equityBase > 0 && sig.Price > 0 {
		maxQty = m.equityBase * m.cfg.MaxPositionPct / sig.Price
	}
	if sig.Qty <= maxQty {
		return sig
	}

	m.logger.Info().
		Str("symbol", sig.Symbol).
		Str("side", string(sig.Side)).
		Float64("qty", sig.Qty).
		Float64("clipped_qty", maxQty).
		Msg("Signal exceeds position limit, clipping")

	clipped := sig.Clone()
	clipped.Qty = maxQty
	return clipped
}
