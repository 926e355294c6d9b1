package cli

import (
	"github.com/spf13/cobra"

	"algo-trader/internal/engine"
	"algo-trader/internal/indicators"
	"algo-trader/internal/marketdata"
)

func newBacktestCmd(app *App) *cobra.Command {
	var (
		dataPath string
		maShort  int
		maLong   int
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay recorded ticks through the strategy",
		Long: `Backtest replays a recorded tick file through the full pipeline.
The run uses the in-memory broker without the durable ledger, so
backtests never interfere with paper trading state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			ticks, err := marketdata.LoadTicks(dataPath)
			if err != nil {
				return err
			}
			if !output.IsJSON() {
				output.Info("Loaded %d ticks from %s", len(ticks), dataPath)
			}

			if maShort > 0 && maLong > 0 {
				if err := indicators.AttachMAFeatures(ticks, maShort, maLong); err != nil {
					return err
				}
			}

			eng, paperBroker, err := app.buildEngine(engine.NewSliceEventSource(ticks), false)
			if err != nil {
				return err
			}
			defer paperBroker.Close()

			result, err := eng.Run(cmd.Context())
			if err != nil {
				return err
			}
			return printSummary(output, result)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "tick data CSV file")
	cmd.Flags().IntVar(&maShort, "ma-short", 0, "precompute ma_short feature over this window")
	cmd.Flags().IntVar(&maLong, "ma-long", 0, "precompute ma_long feature over this window")
	cmd.MarkFlagRequired("data")
	return cmd
}
