package marketdata

import (
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"algo-trader/internal/models"
)

// tickRow is the CSV row format for recorded tick data.
type tickRow struct {
	TS     time.Time `csv:"ts"`
	Symbol string    `csv:"symbol"`
	Price  float64   `csv:"price"`
}

// LoadTicks reads a recorded tick file for backtests. Rows that fail
// the tick validity check are dropped, matching the live source.
func LoadTicks(path string) ([]models.Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening tick data %s: %w", path, err)
	}
	defer f.Close()

	var rows []*tickRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parsing tick data %s: %w", path, err)
	}

	ticks := make([]models.Tick, 0, len(rows))
	for _, row := range rows {
		tick := models.Tick{Symbol: row.Symbol, Price: row.Price, TS: row.TS}
		if !tick.Valid() {
			continue
		}
		ticks = append(ticks, tick)
	}
	return ticks, nil
}
