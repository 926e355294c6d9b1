package broker

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "algo-trader/internal/errors"
	"algo-trader/internal/ledger"
	"algo-trader/internal/models"
)

// PaperBroker simulates execution with local bookkeeping. Fills update
// positions at the caller-provided price; an optional SQLite ledger
// upgrades process-level idempotency to cross-process idempotency and
// lets a restarted process resume its position state.
type PaperBroker struct {
	logger zerolog.Logger
	ledger *ledger.SQLiteLedger
	clock  func() time.Time

	mu            sync.RWMutex
	positions     map[string]*models.Position
	seenOrderIDs  map[string]struct{}
	priceCache    map[string]float64
	realizedAll   float64
	realizedToday float64
}

// PaperBrokerConfig holds configuration for the paper broker.
type PaperBrokerConfig struct {
	// LedgerPath enables the durable ledger when non-empty.
	LedgerPath string
	Logger     zerolog.Logger
	// Clock overrides time.Now for fill timestamps (tests).
	Clock func() time.Time
}

// NewPaperBroker creates a paper broker, restoring positions and
// realized P&L from the ledger when one is configured.
func NewPaperBroker(cfg PaperBrokerConfig) (*PaperBroker, error) {
	p := &PaperBroker{
		logger:       cfg.Logger,
		clock:        cfg.Clock,
		positions:    make(map[string]*models.Position),
		seenOrderIDs: make(map[string]struct{}),
		priceCache:   make(map[string]float64),
	}
	if p.clock == nil {
		p.clock = time.Now
	}

	if cfg.LedgerPath != "" {
		l, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			return nil, err
		}
		p.ledger = l
		if err := p.restoreFromLedger(); err != nil {
			l.Close()
			return nil, err
		}
	}
	return p, nil
}

func (p *PaperBroker) restoreFromLedger() error {
	positions, err := p.ledger.Positions()
	if err != nil {
		return err
	}
	// Flattened positions are restored too, so "traded back to zero"
	// stays distinguishable from "never traded".
	for _, pos := range positions {
		snapshot := pos
		p.positions[pos.Symbol] = &snapshot
	}

	pnl, err := p.ledger.TotalRealizedPnL()
	if err != nil {
		return err
	}
	p.realizedAll = pnl

	// Only fills from the current UTC day count against the daily
	// breaker; the same day definition the engine uses for resets.
	today, err := p.ledger.RealizedPnLOn(p.clock())
	if err != nil {
		return err
	}
	p.realizedToday = today
	return nil
}

// Close releases the underlying ledger, if any.
func (p *PaperBroker) Close() error {
	if p.ledger != nil {
		return p.ledger.Close()
	}
	return nil
}

// Execute applies one signal to the book. The first execution for a
// client order id fills; every later one (same process or a fresh
// process reading the same ledger file) returns StatusDuplicate with
// no position change. Sells without a position are blocked, not
// errors.
func (p *PaperBroker) Execute(sig *models.OrderSignal) (models.ExecResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cid := sig.ClientOrderID
	if cid != "" {
		if _, seen := p.seenOrderIDs[cid]; seen {
			return models.ExecResult{Status: models.StatusDuplicate, ClientOrderID: cid}, nil
		}
	}

	fillPrice := sig.Price
	if fillPrice <= 0 || math.IsNaN(fillPrice) || math.IsInf(fillPrice, 0) {
		return models.ExecResult{}, apperrors.NewOrderError(cid, sig.Symbol, string(sig.Side), "unusable fill price", apperrors.ErrMissingPrice)
	}

	pos, ok := p.positions[sig.Symbol]
	if !ok {
		pos = &models.Position{Symbol: sig.Symbol}
	}

	// Compute the post-fill position without touching broker state;
	// it only becomes visible after the ledger commit succeeds.
	next := *pos
	var realizedDelta float64
	switch sig.Side {
	case models.SideBuy:
		newQty := next.Qty + sig.Qty
		if newQty > 0 {
			next.AvgPrice = (next.AvgPrice*next.Qty + fillPrice*sig.Qty) / newQty
		}
		next.Qty = newQty
	case models.SideSell:
		if next.Qty <= 0 {
			return models.ExecResult{
				Status:        models.StatusBlocked,
				ClientOrderID: cid,
				Symbol:        sig.Symbol,
				Side:          sig.Side,
			}, nil
		}
		closeQty := math.Min(next.Qty, sig.Qty)
		realizedDelta = (fillPrice - next.AvgPrice) * closeQty
		next.Qty -= closeQty
		if next.Qty <= 0 {
			next.Qty = 0
			next.AvgPrice = 0
		}
	default:
		return models.ExecResult{}, apperrors.NewOrderError(cid, sig.Symbol, string(sig.Side), "unsupported side", nil)
	}

	if cid != "" && p.ledger != nil {
		applied, err := p.ledger.RecordFill(ledger.FillEntry{
			ClientOrderID: cid,
			Symbol:        sig.Symbol,
			Side:          sig.Side,
			Qty:           sig.Qty,
			Price:         fillPrice,
			RealizedDelta: realizedDelta,
			Position:      next,
			TS:            p.clock(),
			RawSignal:     sig,
		})
		if err != nil {
			return models.ExecResult{}, err
		}
		if !applied {
			p.seenOrderIDs[cid] = struct{}{}
			return models.ExecResult{Status: models.StatusDuplicate, ClientOrderID: cid}, nil
		}
	}
	if cid != "" {
		p.seenOrderIDs[cid] = struct{}{}
	}

	p.positions[sig.Symbol] = &next
	p.realizedAll += realizedDelta
	p.realizedToday += realizedDelta
	p.priceCache[sig.Symbol] = fillPrice

	p.logger.Info().
		Str("side", string(sig.Side)).
		Str("symbol", sig.Symbol).
		Float64("qty", sig.Qty).
		Float64("price", displayPrice(fillPrice)).
		Str("reason", sig.Reason).
		Msg("Paper order filled")

	return models.ExecResult{
		Status:        models.StatusFilled,
		ClientOrderID: cid,
		Symbol:        sig.Symbol,
		Side:          sig.Side,
		Qty:           sig.Qty,
		Price:         fillPrice,
		PositionQty:   next.Qty,
		AvgPrice:      next.AvgPrice,
		RealizedDelta: realizedDelta,
	}, nil
}

// displayPrice rounds for log readability only; fill prices are
// stored and returned verbatim.
func displayPrice(price float64) float64 {
	return math.Round(price*100) / 100
}

// Position returns the current position for a symbol.
func (p *PaperBroker) Position(symbol string) (models.Position, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	pos, ok := p.positions[symbol]
	if !ok {
		return models.Position{}, false
	}
	return *pos, true
}

// Positions returns a snapshot of every traded position, including
// flattened ones (qty back at zero).
func (p *PaperBroker) Positions() []models.Position {
	p.mu.RLock()
	defer p.mu.RUnlock()

	positions := make([]models.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		positions = append(positions, *pos)
	}
	return positions
}

// RealizedPnLToday returns the P&L realized since the last daily reset.
func (p *PaperBroker) RealizedPnLToday() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.realizedToday
}

// UnrealizedPnL marks open positions against the latest seen prices.
func (p *PaperBroker) UnrealizedPnL() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var pnl float64
	for symbol, pos := range p.positions {
		if price, ok := p.priceCache[symbol]; ok && price > 0 {
			pnl += (price - pos.AvgPrice) * pos.Qty
		}
	}
	return pnl
}

// ResetDailyPnL zeroes the daily realized P&L at a day boundary.
func (p *PaperBroker) ResetDailyPnL() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.realizedToday = 0
}

// MarkPrice records the latest observed price for a symbol, used for
// unrealized P&L marks.
func (p *PaperBroker) MarkPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.priceCache[symbol] = price
}

// Ensure PaperBroker implements Broker.
var _ Broker = (*PaperBroker)(nil)
