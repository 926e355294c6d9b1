// Package journal accumulates run artifacts in memory and writes them
// as CSV files once at the end of a run.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"

	"algo-trader/internal/models"
)

// Artifacts holds the paths of the files written by Flush.
type Artifacts struct {
	TradesPath string
	EquityPath string
}

// Journal records fills and equity marks during a run. Nothing touches
// the filesystem until Flush, so a crashed run leaves no partial files.
type Journal struct {
	dir    string
	runID  string
	logger zerolog.Logger

	mu     sync.Mutex
	trades []*models.TradeRecord
	equity []*models.EquityPoint
}

// New creates a journal that will write under dir. runID becomes part
// of the file names so concurrent runs never clobber each other.
func New(dir, runID string, logger zerolog.Logger) *Journal {
	if runID == "" {
		runID = time.Now().UTC().Format("20060102T150405")
	}
	return &Journal{dir: dir, runID: runID, logger: logger}
}

// RecordFill appends one trade row for a filled execution.
func (j *Journal) RecordFill(res models.ExecResult, ts time.Time) {
	if res.Status != models.StatusFilled {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades = append(j.trades, &models.TradeRecord{
		TS:            ts,
		Symbol:        res.Symbol,
		Side:          res.Side,
		Qty:           res.Qty,
		Price:         res.Price,
		RealizedPnL:   res.RealizedDelta,
		PositionQty:   res.PositionQty,
		PositionAvg:   res.AvgPrice,
		ClientOrderID: res.ClientOrderID,
	})
}

// RecordEquity appends one equity curve point.
func (j *Journal) RecordEquity(ts time.Time, equity float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.equity = append(j.equity, &models.EquityPoint{TS: ts, Equity: equity})
}

// Trades returns a snapshot of the recorded trades.
func (j *Journal) Trades() []*models.TradeRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]*models.TradeRecord, len(j.trades))
	copy(out, j.trades)
	return out
}

// EquityCurve returns a snapshot of the recorded equity points.
func (j *Journal) EquityCurve() []*models.EquityPoint {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]*models.EquityPoint, len(j.equity))
	copy(out, j.equity)
	return out
}

// Flush writes the trade log and equity curve to dir and returns their
// paths. Safe to call with no recorded rows; headers are still written
// so downstream tooling sees well-formed files.
func (j *Journal) Flush() (Artifacts, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("creating output dir %s: %w", j.dir, err)
	}

	arts := Artifacts{
		TradesPath: filepath.Join(j.dir, fmt.Sprintf("trades_%s.csv", j.runID)),
		EquityPath: filepath.Join(j.dir, fmt.Sprintf("equity_%s.csv", j.runID)),
	}

	if err := writeCSV(arts.TradesPath, &j.trades); err != nil {
		return Artifacts{}, err
	}
	if err := writeCSV(arts.EquityPath, &j.equity); err != nil {
		return Artifacts{}, err
	}

	j.logger.Info().
		Int("trades", len(j.trades)).
		Int("equity_points", len(j.equity)).
		Str("trades_path", arts.TradesPath).
		Str("equity_path", arts.EquityPath).
		Msg("Run artifacts written")
	return arts, nil
}

func writeCSV(path string, rows interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(rows, f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
