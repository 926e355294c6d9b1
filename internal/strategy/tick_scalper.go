package strategy

import (
	"fmt"
	"time"

	"algo-trader/internal/models"
)

// TickScalper is a mean-reversion scalping strategy over a rolling
// tick-price window: sell when price stretches above the window mean
// by more than the threshold, buy when it stretches below. A one
// second cooldown caps the signal rate.
type TickScalper struct {
	id        string
	window    int
	threshold float64

	prices       []float64
	lastSignalTS time.Time
}

// NewTickScalper builds a TickScalper with defaults window=20,
// threshold=0.0001, overridable via params.
func NewTickScalper(id string, params map[string]float64) *TickScalper {
	s := &TickScalper{
		id:        id,
		window:    20,
		threshold: 0.0001,
	}
	if v, ok := params["window"]; ok && v > 0 {
		s.window = int(v)
	}
	if v, ok := params["threshold"]; ok && v > 0 {
		s.threshold = v
	}
	return s
}

func (s *TickScalper) StrategyID() string {
	return s.id
}

func (s *TickScalper) OnTick(tick models.Tick) []*models.OrderSignal {
	s.prices = append(s.prices, tick.Price)
	if len(s.prices) > s.window {
		s.prices = s.prices[len(s.prices)-s.window:]
	}
	if len(s.prices) < s.window {
		return nil
	}

	var sum float64
	for _, p := range s.prices {
		sum += p
	}
	avg := sum / float64(len(s.prices))
	if avg == 0 {
		return nil
	}
	deviation := (tick.Price - avg) / avg

	if !s.lastSignalTS.IsZero() && tick.TS.Sub(s.lastSignalTS) < time.Second {
		return nil
	}

	var side models.Side
	switch {
	case deviation > s.threshold:
		side = models.SideSell
	case deviation < -s.threshold:
		side = models.SideBuy
	default:
		return nil
	}

	s.lastSignalTS = tick.TS
	return []*models.OrderSignal{{
		Symbol: tick.Symbol,
		Side:   side,
		Qty:    0,
		Reason: fmt.Sprintf("scalp_%s_dev_%.5f", side, deviation),
	}}
}
