// Package ledger provides the durable, uniquely-keyed order ledger
// backing broker idempotency across process restarts.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	apperrors "algo-trader/internal/errors"
	"algo-trader/internal/models"
)

// FillEntry is everything the broker commits for one executed fill:
// the order row keyed by client order id, the fill row, and the
// resulting position snapshot. All three are written in a single
// transaction.
type FillEntry struct {
	ClientOrderID string
	Symbol        string
	Side          models.Side
	Qty           float64
	Price         float64 // exact fill price, unrounded
	RealizedDelta float64
	Position      models.Position
	TS            time.Time
	RawSignal     *models.OrderSignal
}

// SQLiteLedger stores orders, fills and position snapshots in a
// file-backed SQLite database. The client_order_id primary key is the
// idempotency mechanism: at most one order row per key, enforced by
// the store itself so concurrent processes sharing the file cannot
// both apply the same fill.
type SQLiteLedger struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger at path.
func Open(path string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	l := &SQLiteLedger{db: db}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return l, nil
}

func (l *SQLiteLedger) initSchema() error {
	schema := `
	-- Orders: one row per unique client_order_id (idempotency key)
	CREATE TABLE IF NOT EXISTS orders (
		client_order_id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		qty REAL NOT NULL,
		price REAL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		raw_signal_json TEXT NOT NULL
	);

	-- Fills: append-only execution records
	CREATE TABLE IF NOT EXISTS fills (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_order_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		qty REAL NOT NULL,
		price REAL NOT NULL,
		realized_delta REAL NOT NULL DEFAULT 0,
		ts TEXT NOT NULL,
		FOREIGN KEY (client_order_id) REFERENCES orders(client_order_id)
	);

	-- Positions: latest per-symbol snapshot, updated with each fill
	CREATE TABLE IF NOT EXISTS positions (
		symbol TEXT PRIMARY KEY,
		qty REAL NOT NULL,
		avg_price REAL NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_fills_cid ON fills(client_order_id);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

// HasOrder reports whether a client order id already exists.
func (l *SQLiteLedger) HasOrder(clientOrderID string) (bool, error) {
	var one int
	err := l.db.QueryRow(
		"SELECT 1 FROM orders WHERE client_order_id = ? LIMIT 1",
		clientOrderID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewLedgerError("has_order", clientOrderID, err)
	}
	return true, nil
}

// RecordFill commits the order, fill and updated position atomically.
// It returns applied=false when the client order id already exists
// (same process or another process sharing the file); in that case no
// state changes. Any other failure rolls the whole transaction back so
// a crash can never leave an executed-but-unrecorded order or a
// recorded-but-unapplied position.
func (l *SQLiteLedger) RecordFill(entry FillEntry) (applied bool, err error) {
	rawJSON := "{}"
	if entry.RawSignal != nil {
		if b, jerr := json.Marshal(entry.RawSignal); jerr == nil {
			rawJSON = string(b)
		}
	}

	tx, err := l.db.Begin()
	if err != nil {
		return false, apperrors.NewLedgerError("begin", entry.ClientOrderID, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	ts := entry.TS.UTC().Format(time.RFC3339Nano)
	_, err = tx.Exec(
		`INSERT INTO orders (client_order_id, symbol, side, qty, price, status, created_at, raw_signal_json)
		 VALUES (?, ?, ?, ?, ?, 'FILLED', ?, ?)`,
		entry.ClientOrderID, entry.Symbol, string(entry.Side), entry.Qty, entry.Price, ts, rawJSON,
	)
	if err != nil {
		if isUniqueViolation(err) {
			tx.Rollback()
			err = nil
			return false, nil
		}
		err = apperrors.NewLedgerError("insert_order", entry.ClientOrderID, err)
		return false, err
	}

	_, err = tx.Exec(
		`INSERT INTO fills (client_order_id, symbol, side, qty, price, realized_delta, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ClientOrderID, entry.Symbol, string(entry.Side), entry.Qty, entry.Price, entry.RealizedDelta, ts,
	)
	if err != nil {
		err = apperrors.NewLedgerError("insert_fill", entry.ClientOrderID, err)
		return false, err
	}

	_, err = tx.Exec(
		`INSERT INTO positions (symbol, qty, avg_price, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(symbol) DO UPDATE SET qty = excluded.qty, avg_price = excluded.avg_price, updated_at = excluded.updated_at`,
		entry.Position.Symbol, entry.Position.Qty, entry.Position.AvgPrice, ts,
	)
	if err != nil {
		err = apperrors.NewLedgerError("upsert_position", entry.ClientOrderID, err)
		return false, err
	}

	if err = tx.Commit(); err != nil {
		err = apperrors.NewLedgerError("commit", entry.ClientOrderID, err)
		return false, err
	}
	return true, nil
}

// Positions returns the latest per-symbol snapshots, including
// flattened positions (qty back at zero). Used to restore broker state
// in a fresh process.
func (l *SQLiteLedger) Positions() ([]models.Position, error) {
	rows, err := l.db.Query("SELECT symbol, qty, avg_price FROM positions ORDER BY symbol")
	if err != nil {
		return nil, apperrors.NewLedgerError("positions", "", err)
	}
	defer rows.Close()

	var positions []models.Position
	for rows.Next() {
		var p models.Position
		if err := rows.Scan(&p.Symbol, &p.Qty, &p.AvgPrice); err != nil {
			return nil, apperrors.NewLedgerError("positions", "", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// TotalRealizedPnL sums realized deltas over all recorded fills.
func (l *SQLiteLedger) TotalRealizedPnL() (float64, error) {
	var pnl sql.NullFloat64
	err := l.db.QueryRow("SELECT SUM(realized_delta) FROM fills").Scan(&pnl)
	if err != nil {
		return 0, apperrors.NewLedgerError("realized_pnl", "", err)
	}
	return pnl.Float64, nil
}

// RealizedPnLOn sums realized deltas over fills recorded on the given
// UTC day. Fill timestamps are stored as UTC RFC3339Nano strings, so
// the date prefix identifies the day exactly.
func (l *SQLiteLedger) RealizedPnLOn(day time.Time) (float64, error) {
	var pnl sql.NullFloat64
	err := l.db.QueryRow(
		"SELECT SUM(realized_delta) FROM fills WHERE substr(ts, 1, 10) = ?",
		day.UTC().Format("2006-01-02"),
	).Scan(&pnl)
	if err != nil {
		return 0, apperrors.NewLedgerError("realized_pnl_on", "", err)
	}
	return pnl.Float64, nil
}

// OrderCount returns the number of distinct orders in the ledger.
func (l *SQLiteLedger) OrderCount() (int, error) {
	var n int
	if err := l.db.QueryRow("SELECT COUNT(*) FROM orders").Scan(&n); err != nil {
		return 0, apperrors.NewLedgerError("order_count", "", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if apperrors.As(err, &serr) {
		return serr.Code == sqlite3.ErrConstraint
	}
	return false
}
