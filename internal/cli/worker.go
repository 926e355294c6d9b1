package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"algo-trader/internal/engine"
	"algo-trader/internal/logging"
	"algo-trader/internal/marketdata"
	"algo-trader/internal/strategy"
	"algo-trader/internal/worker"
)

func newWorkerCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Distributed run processing",
	}
	cmd.AddCommand(newWorkerRunCmd(app))
	cmd.AddCommand(newWorkerSubmitCmd(app))
	return cmd
}

func newWorkerRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Consume queued backtest jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w, err := worker.New(ctx, worker.Config{
				RedisAddr:       app.Config.Worker.RedisAddr,
				Queue:           app.Config.Worker.Queue,
				ProgressChannel: app.Config.Worker.ProgressChannel,
			}, app.jobHandler, app.Logger)
			if err != nil {
				return err
			}
			defer w.Close()

			return w.Run(ctx)
		},
	}
}

// jobHandler runs one queued backtest. Job fields override the static
// configuration so a single worker can serve many experiments.
func (a *App) jobHandler(ctx context.Context, job worker.Job) (worker.Outcome, error) {
	logger := logging.FromContext(ctx)

	ticks, err := marketdata.LoadTicks(job.DataPath)
	if err != nil {
		return worker.Outcome{}, err
	}

	jobApp := &App{Logger: logger}
	cfg := *a.Config
	if job.Symbol != "" {
		cfg.Symbol = job.Symbol
	}
	if job.Strategy != "" {
		cfg.Strategy = strategy.Config{Type: job.Strategy, Params: job.Params}
	}
	if job.MaxTicks > 0 {
		cfg.MaxTicks = job.MaxTicks
	}
	jobApp.Config = &cfg

	eng, paperBroker, err := jobApp.buildEngine(engine.NewSliceEventSource(ticks), false)
	if err != nil {
		return worker.Outcome{}, err
	}
	defer paperBroker.Close()

	result, err := eng.Run(ctx)
	if err != nil {
		return worker.Outcome{}, err
	}
	return worker.Outcome{
		Fills:       result.Summary.Fills,
		RealizedPnL: result.Summary.RealizedPnL,
	}, nil
}

func newWorkerSubmitCmd(app *App) *cobra.Command {
	var job worker.Job

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Enqueue a backtest job",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if job.ID == "" {
				job.ID = fmt.Sprintf("job-%d", time.Now().UnixNano())
			}

			rdb := redis.NewClient(&redis.Options{Addr: app.Config.Worker.RedisAddr})
			defer rdb.Close()

			if err := worker.Enqueue(cmd.Context(), rdb, app.Config.Worker.Queue, job); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"job_id": job.ID})
			}
			output.Success("Enqueued %s", job.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&job.ID, "id", "", "job id (generated when empty)")
	cmd.Flags().StringVar(&job.Symbol, "symbol", "", "symbol override")
	cmd.Flags().StringVar(&job.Strategy, "strategy", "", "strategy override")
	cmd.Flags().StringVar(&job.DataPath, "data", "", "tick data CSV file on the worker host")
	cmd.Flags().IntVar(&job.MaxTicks, "max-ticks", 0, "event cap for the run")
	cmd.MarkFlagRequired("data")
	return cmd
}
