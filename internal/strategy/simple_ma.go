package strategy

import (
	"math"
	"time"

	"algo-trader/internal/models"
)

// SimpleMA is a moving-average crossover strategy. It emits a buy when
// the short MA crosses above the long MA and a sell on the reverse
// cross, with a minimum MA gap filter and a cooldown to debounce
// choppy markets. Signals carry Qty 0 so sizing decides the quantity.
type SimpleMA struct {
	id          string
	shortWindow int
	longWindow  int
	minMADiff   float64
	cooldown    time.Duration

	prices      []float64
	lastSignal  models.Side
	lastTradeTS time.Time
}

// NewSimpleMA builds a SimpleMA with defaults short=5, long=20,
// min_ma_diff=0.5, cooldown_secs=10, overridable via params.
func NewSimpleMA(id string, params map[string]float64) *SimpleMA {
	s := &SimpleMA{
		id:          id,
		shortWindow: 5,
		longWindow:  20,
		minMADiff:   0.5,
		cooldown:    10 * time.Second,
	}
	if v, ok := params["short_window"]; ok && v > 0 {
		s.shortWindow = int(v)
	}
	if v, ok := params["long_window"]; ok && v > 0 {
		s.longWindow = int(v)
	}
	if v, ok := params["min_ma_diff"]; ok && v >= 0 {
		s.minMADiff = v
	}
	if v, ok := params["cooldown_secs"]; ok && v >= 0 {
		s.cooldown = time.Duration(v * float64(time.Second))
	}
	if s.shortWindow > s.longWindow {
		s.shortWindow = s.longWindow
	}
	return s
}

func (s *SimpleMA) StrategyID() string {
	return s.id
}

func (s *SimpleMA) OnTick(tick models.Tick) []*models.OrderSignal {
	shortMA, longMA, ok := s.movingAverages(tick)
	if !ok {
		return nil
	}
	if math.Abs(shortMA-longMA) < s.minMADiff {
		return nil
	}
	if !s.lastTradeTS.IsZero() && tick.TS.Sub(s.lastTradeTS) < s.cooldown {
		return nil
	}

	var side models.Side
	var reason string
	switch {
	case shortMA > longMA && s.lastSignal != models.SideBuy:
		side, reason = models.SideBuy, "ma_cross_up"
	case shortMA < longMA && s.lastSignal != models.SideSell:
		side, reason = models.SideSell, "ma_cross_down"
	default:
		return nil
	}

	s.lastSignal = side
	s.lastTradeTS = tick.TS
	return []*models.OrderSignal{{
		Symbol: tick.Symbol,
		Side:   side,
		Qty:    0,
		Reason: reason,
	}}
}

// movingAverages prefers precomputed MA features on the tick, falling
// back to an internal rolling window of tick prices.
func (s *SimpleMA) movingAverages(tick models.Tick) (shortMA, longMA float64, ok bool) {
	if tick.Features != nil {
		sv, sok := tick.Features["ma_short"]
		lv, lok := tick.Features["ma_long"]
		if sok && lok {
			if math.IsNaN(sv) || math.IsNaN(lv) {
				return 0, 0, false
			}
			return sv, lv, true
		}
	}

	s.prices = append(s.prices, tick.Price)
	if len(s.prices) > s.longWindow {
		s.prices = s.prices[len(s.prices)-s.longWindow:]
	}
	if len(s.prices) < s.longWindow {
		return 0, 0, false
	}

	var shortSum float64
	for _, p := range s.prices[len(s.prices)-s.shortWindow:] {
		shortSum += p
	}
	var longSum float64
	for _, p := range s.prices {
		longSum += p
	}
	return shortSum / float64(s.shortWindow), longSum / float64(len(s.prices)), true
}
