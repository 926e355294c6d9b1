// Package models defines the core data structures shared across the
// execution pipeline: ticks, order signals, positions and fills.
package models

import (
	"math"
	"time"
)

// Side represents the direction of an order signal.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether the side is one of the known directions.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Tick is an immutable market observation. Price must be finite.
type Tick struct {
	Symbol   string
	Price    float64
	TS       time.Time
	Features map[string]float64
}

// Valid reports whether the tick carries a usable price and timestamp.
func (t Tick) Valid() bool {
	return t.Symbol != "" && !t.TS.IsZero() &&
		!math.IsNaN(t.Price) && !math.IsInf(t.Price, 0)
}

// OrderSignal is a strategy's trade intent. Qty <= 0 means "let sizing
// decide the quantity"; an explicit positive Qty is capped, not replaced.
// Once a signal enters the risk manager its Qty must never change in
// place: any adjustment produces a new instance via Clone.
type OrderSignal struct {
	Symbol        string
	Side          Side
	Qty           float64
	Price         float64 // 0 until filled in by the pipeline
	Reason        string
	ClientOrderID string // empty until assigned by the pipeline
}

// Clone returns a copy of the signal. Used for copy-on-clip so callers
// keep ownership of the original.
func (s *OrderSignal) Clone() *OrderSignal {
	c := *s
	return &c
}

// Position is per-symbol broker-owned state. Qty is signed; positive
// means long. AvgPrice is volume-weighted over same-direction adds.
type Position struct {
	Symbol   string
	Qty      float64
	AvgPrice float64
}

// Notional returns the absolute notional value at the given mark price.
func (p Position) Notional(price float64) float64 {
	return math.Abs(p.Qty * price)
}

// ExecStatus is the outcome of a broker execution attempt.
type ExecStatus string

const (
	StatusFilled    ExecStatus = "filled"
	StatusDuplicate ExecStatus = "duplicate"
	StatusBlocked   ExecStatus = "blocked"
)

// ExecResult is the per-signal outcome returned by Broker.Execute.
// Price is the exact fill price, unrounded.
type ExecResult struct {
	Status        ExecStatus
	ClientOrderID string
	Symbol        string
	Side          Side
	Qty           float64
	Price         float64
	PositionQty   float64
	AvgPrice      float64
	RealizedDelta float64
}

// TradeRecord is one row of the run's trade log artifact.
type TradeRecord struct {
	TS            time.Time `csv:"ts"`
	Symbol        string    `csv:"symbol"`
	Side          Side      `csv:"side"`
	Qty           float64   `csv:"qty"`
	Price         float64   `csv:"price"`
	RealizedPnL   float64   `csv:"realized_pnl"`
	PositionQty   float64   `csv:"position_qty"`
	PositionAvg   float64   `csv:"position_avg_price"`
	ClientOrderID string    `csv:"client_order_id"`
}

// EquityPoint is one row of the run's equity curve artifact.
type EquityPoint struct {
	TS     time.Time `csv:"ts"`
	Equity float64   `csv:"equity"`
}
