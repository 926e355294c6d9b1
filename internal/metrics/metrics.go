// Package metrics computes summary performance statistics from a run's
// trade log and equity curve.
package metrics

import (
	"math"

	"algo-trader/internal/models"
)

// Report summarizes a run. Ratio fields are NaN-free: where a
// denominator is zero the field is 0 rather than NaN or Inf.
type Report struct {
	Trades         int     `json:"trades"`
	ClosedTrades   int     `json:"closed_trades"`
	WinRate        float64 `json:"win_rate"`
	NetPnL         float64 `json:"net_pnl"`
	ProfitFactor   float64 `json:"profit_factor"`
	Expectancy     float64 `json:"expectancy"`
	AvgTradeReturn float64 `json:"avg_trade_return"`
	StdTradeReturn float64 `json:"std_trade_return"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	Turnover       float64 `json:"turnover"`
	Exposure       float64 `json:"exposure"`
	FinalEquity    float64 `json:"final_equity"`
}

// Compute derives a report from the journal's rows. Closed trades are
// the rows that realized P&L, i.e. the sells; buys contribute to
// turnover only. Exposure is filled in by the caller, which knows how
// many events were spent holding a position.
func Compute(trades []*models.TradeRecord, equity []*models.EquityPoint, equityBase float64) Report {
	var r Report
	r.Trades = len(trades)

	var grossWin, grossLoss, notional float64
	var returns []float64
	for _, t := range trades {
		notional += math.Abs(t.Qty * t.Price)
		if t.Side != models.SideSell {
			continue
		}
		r.ClosedTrades++
		r.NetPnL += t.RealizedPnL
		returns = append(returns, t.RealizedPnL)
		if t.RealizedPnL > 0 {
			grossWin += t.RealizedPnL
		} else {
			grossLoss += -t.RealizedPnL
		}
	}

	if r.ClosedTrades > 0 {
		wins := 0
		for _, ret := range returns {
			if ret > 0 {
				wins++
			}
		}
		r.WinRate = float64(wins) / float64(r.ClosedTrades)
		r.Expectancy = r.NetPnL / float64(r.ClosedTrades)
		r.AvgTradeReturn = mean(returns)
		r.StdTradeReturn = stddev(returns)
	}
	if grossLoss > 0 {
		r.ProfitFactor = grossWin / grossLoss
	} else if grossWin > 0 {
		r.ProfitFactor = math.Inf(1)
	}
	if equityBase > 0 {
		r.Turnover = notional / equityBase
	}

	r.MaxDrawdown = MaxDrawdown(equity)
	if n := len(equity); n > 0 {
		r.FinalEquity = equity[n-1].Equity
	}
	return r
}

// MaxDrawdown returns the largest peak-to-trough decline as a fraction
// of the peak. An empty or monotonically rising curve yields 0.
func MaxDrawdown(equity []*models.EquityPoint) float64 {
	var peak, maxDD float64
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if dd := (peak - p.Equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mu := mean(xs)
	var sq float64
	for _, x := range xs {
		d := x - mu
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(xs)-1))
}
