package cli

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	apperrors "algo-trader/internal/errors"
	"algo-trader/internal/marketdata"
	"algo-trader/internal/telemetry"
)

func newRunCmd(app *App) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Trade a live market stream on paper",
		Long: `Run connects to the configured market stream and trades it on
paper until interrupted. Executions go through the durable ledger, so
restarting the process never refills an already executed order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			cfg := app.Config

			if cfg.Market.WSURL == "" {
				return apperrors.NewValidationError("market.ws_url", cfg.Market.WSURL, "required for live runs")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if metricsAddr != "" {
				go func() {
					if err := telemetry.Serve(metricsAddr); err != nil {
						app.Logger.Warn().Err(err).Str("addr", metricsAddr).Msg("Metrics endpoint failed")
					}
				}()
			}

			client := marketdata.NewWSClient(cfg.Market.WSURL)
			source := marketdata.NewEventSource(client, cfg.Symbol, marketdata.SourceConfig{
				BackoffInitial: secs(cfg.Market.BackoffInitialSecs),
				BackoffMax:     secs(cfg.Market.BackoffMaxSecs),
				BackoffFactor:  cfg.Market.BackoffFactor,
				Jitter:         secs(cfg.Market.JitterSecs),
			}, app.Logger)

			eng, paperBroker, err := app.buildEngine(source, true)
			if err != nil {
				return err
			}
			defer paperBroker.Close()

			if !output.IsJSON() {
				output.Info("Trading %s on paper, press Ctrl-C to stop", cfg.Symbol)
			}

			result, err := eng.Run(ctx)
			if err != nil {
				return err
			}
			return printSummary(output, result)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func secs(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
