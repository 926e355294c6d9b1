// Package sizing converts directional trade intents into bounded
// quantities under a named capital-allocation rule.
package sizing

import (
	"strings"

	"github.com/rs/zerolog"

	"algo-trader/internal/models"
)

// Sizer computes the maximum tradable quantity for each direction given
// price, current position and the equity base.
type Sizer interface {
	MaxBuyQty(price, currentQty, equityBase float64) float64
	MaxSellQty(price, currentQty, equityBase float64) float64
}

// Config holds sizing configuration resolved by the config loader.
// Mode accepts both hyphen and underscore spellings.
type Config struct {
	Mode          string  `mapstructure:"mode"`
	Qty           float64 `mapstructure:"qty"`
	TradeNotional float64 `mapstructure:"trade_notional"`
	PositionPct   float64 `mapstructure:"position_pct"`
}

// Build resolves a sizer from configuration. Unrecognized or missing
// modes yield NoopSizer, which fails closed rather than allowing
// unsized trades through.
func Build(cfg Config) Sizer {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	mode = strings.ReplaceAll(mode, "-", "_")

	switch mode {
	case "fixed_qty":
		return FixedQtySizer{Qty: cfg.Qty}
	case "fixed_notional":
		return FixedNotionalSizer{TradeNotional: cfg.TradeNotional}
	case "pct_equity", "position_pct":
		return PctEquitySizer{PositionPct: cfg.PositionPct}
	default:
		return NoopSizer{}
	}
}

// NoopSizer is the fallback when no policy resolves from configuration.
// Both directions return 0.
type NoopSizer struct{}

func (NoopSizer) MaxBuyQty(price, currentQty, equityBase float64) float64  { return 0 }
func (NoopSizer) MaxSellQty(price, currentQty, equityBase float64) float64 { return 0 }

// PositionReader is the broker capability sizing needs: the current
// position for a symbol, if any.
type PositionReader interface {
	Position(symbol string) (models.Position, bool)
}

// SizeSignals applies the configured sizing policy to a batch of
// signals. Signals whose resulting quantity is <= 0 are dropped. A
// signal with Qty <= 0 asks sizing to decide the quantity; an explicit
// positive Qty is capped, not replaced. Sells without a position are
// dropped (no shorting in paper and backtest modes).
func SizeSignals(signals []*models.OrderSignal, positions PositionReader, sizer Sizer, equityBase float64, logger zerolog.Logger) []*models.OrderSignal {
	if len(signals) == 0 {
		return nil
	}

	sized := make([]*models.OrderSignal, 0, len(signals))
	for _, sig := range signals {
		if sig.Price <= 0 {
			logger.Debug().
				Str("symbol", sig.Symbol).
				Str("side", string(sig.Side)).
				Msg("Skip sizing: missing price")
			continue
		}

		var currentQty float64
		if pos, ok := positions.Position(sig.Symbol); ok {
			currentQty = pos.Qty
		}

		var maxQty float64
		switch sig.Side {
		case models.SideBuy:
			maxQty = sizer.MaxBuyQty(sig.Price, currentQty, equityBase)
		case models.SideSell:
			if currentQty <= 0 {
				continue
			}
			maxQty = sizer.MaxSellQty(sig.Price, currentQty, equityBase)
		default:
			continue
		}
		if maxQty <= 0 {
			continue
		}

		target := sig.Qty
		if target <= 0 {
			target = maxQty
		} else if target > maxQty {
			target = maxQty
		}
		if sig.Side == models.SideSell && target > currentQty {
			target = currentQty
		}
		if target <= 0 {
			continue
		}

		out := sig
		if target != sig.Qty {
			out = sig.Clone()
			out.Qty = target
		}
		sized = append(sized, out)
	}
	return sized
}
