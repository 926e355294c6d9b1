package cli

import (
	"github.com/spf13/cobra"

	"algo-trader/internal/ledger"
	"algo-trader/pkg/utils"
)

func newLedgerCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the durable order ledger",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show ledger positions and realized P&L",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			l, err := ledger.Open(app.Config.Ledger.Path)
			if err != nil {
				return err
			}
			defer l.Close()

			positions, err := l.Positions()
			if err != nil {
				return err
			}
			pnl, err := l.TotalRealizedPnL()
			if err != nil {
				return err
			}
			orders, err := l.OrderCount()
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"path":         app.Config.Ledger.Path,
					"orders":       orders,
					"realized_pnl": pnl,
					"positions":    positions,
				})
			}

			output.Bold("Ledger %s", app.Config.Ledger.Path)
			output.Printf("  orders        %d\n", orders)
			output.Printf("  realized pnl  %s\n", output.PnL(utils.FormatPnL(pnl), pnl))
			for _, pos := range positions {
				if pos.Qty == 0 {
					continue
				}
				output.Printf("  %-12s qty %s avg %s\n",
					pos.Symbol, utils.FormatQuantity(pos.Qty), utils.FormatMoney(pos.AvgPrice))
			}
			return nil
		},
	})

	return cmd
}
