package journal

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"algo-trader/internal/models"
)

func TestFlushWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	j := New(dir, "testrun", zerolog.Nop())

	ts := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	j.RecordFill(models.ExecResult{
		Status:        models.StatusFilled,
		ClientOrderID: "za_abc",
		Symbol:        "BTCUSDT",
		Side:          models.SideBuy,
		Qty:           1,
		Price:         100,
		PositionQty:   1,
		AvgPrice:      100,
	}, ts)
	j.RecordEquity(ts, 10000)
	j.RecordEquity(ts.Add(time.Minute), 10010)

	arts, err := j.Flush()
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}

	trades, err := os.ReadFile(arts.TradesPath)
	if err != nil {
		t.Fatalf("reading trades: %v", err)
	}
	if !strings.Contains(string(trades), "za_abc") {
		t.Errorf("trade log missing order id:\n%s", trades)
	}
	if !strings.Contains(string(trades), "client_order_id") {
		t.Errorf("trade log missing header:\n%s", trades)
	}

	equity, err := os.ReadFile(arts.EquityPath)
	if err != nil {
		t.Fatalf("reading equity: %v", err)
	}
	if got := strings.Count(strings.TrimSpace(string(equity)), "\n"); got != 2 {
		t.Errorf("equity file has %d data rows, want 2:\n%s", got, equity)
	}
}

func TestRecordFillIgnoresNonFills(t *testing.T) {
	j := New(t.TempDir(), "testrun", zerolog.Nop())
	j.RecordFill(models.ExecResult{Status: models.StatusDuplicate}, time.Now())
	j.RecordFill(models.ExecResult{Status: models.StatusBlocked}, time.Now())

	if got := len(j.Trades()); got != 0 {
		t.Errorf("recorded %d trades, want 0", got)
	}
}
