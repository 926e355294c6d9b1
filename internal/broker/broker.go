// Package broker provides order execution against per-symbol position
// state, with at-most-once semantics per client order id.
package broker

import (
	"algo-trader/internal/models"
)

// Broker executes accepted signals and owns position state for the
// duration of a run. Execute must be idempotent per client order id:
// a repeated id yields StatusDuplicate and leaves positions untouched,
// including across process restarts when backed by a shared ledger.
type Broker interface {
	Execute(sig *models.OrderSignal) (models.ExecResult, error)
	Position(symbol string) (models.Position, bool)
	Positions() []models.Position
	RealizedPnLToday() float64
	UnrealizedPnL() float64
	ResetDailyPnL()
	MarkPrice(symbol string, price float64)
}
