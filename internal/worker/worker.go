// Package worker consumes backtest jobs from a Redis queue and
// publishes progress events, so long runs can be driven and observed
// from outside the process.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"algo-trader/internal/logging"
	"algo-trader/pkg/utils"
)

// Job is one queued run request.
type Job struct {
	ID       string             `json:"id"`
	Symbol   string             `json:"symbol"`
	Strategy string             `json:"strategy"`
	Params   map[string]float64 `json:"params,omitempty"`
	DataPath string             `json:"data_path"`
	MaxTicks int                `json:"max_ticks,omitempty"`
}

// Progress is one published status event for a job.
type Progress struct {
	JobID  string    `json:"job_id"`
	Status string    `json:"status"`
	Detail string    `json:"detail,omitempty"`
	Fills  int       `json:"fills,omitempty"`
	PnL    float64   `json:"pnl,omitempty"`
	TS     time.Time `json:"ts"`
}

// Job status values.
const (
	StatusStarted  = "started"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// Outcome is what a handler reports back for a finished job.
type Outcome struct {
	Fills       int
	RealizedPnL float64
}

// Handler runs one job. The worker owns queue mechanics and progress
// publication; the handler owns everything about the run itself.
type Handler func(ctx context.Context, job Job) (Outcome, error)

// Config holds worker transport configuration.
type Config struct {
	RedisAddr       string
	Queue           string
	ProgressChannel string
	// PopTimeout bounds each blocking pop so shutdown is responsive.
	PopTimeout time.Duration
}

// Worker pulls jobs one at a time. Jobs are processed strictly
// sequentially; parallelism comes from running more worker processes.
type Worker struct {
	cfg     Config
	rdb     *redis.Client
	handler Handler
	logger  zerolog.Logger
}

// New creates a worker and verifies the Redis connection.
func New(ctx context.Context, cfg Config, handler Handler, logger zerolog.Logger) (*Worker, error) {
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = 5 * time.Second
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis %s: %w", cfg.RedisAddr, err)
	}
	return &Worker{cfg: cfg, rdb: rdb, handler: handler, logger: logger}, nil
}

// Close releases the Redis connection.
func (w *Worker) Close() error {
	return w.rdb.Close()
}

// Run consumes jobs until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().
		Str("queue", w.cfg.Queue).
		Str("channel", w.cfg.ProgressChannel).
		Msg("Worker started")

	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info().Msg("Worker stopping")
			return nil
		}

		res, err := w.rdb.BLPop(ctx, w.cfg.PopTimeout, w.cfg.Queue).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error().Err(err).Msg("Queue pop failed")
			continue
		}
		// BLPop returns [key, value].
		if len(res) < 2 {
			continue
		}
		w.process(ctx, []byte(res[1]))
	}
}

func (w *Worker) process(ctx context.Context, payload []byte) {
	var job Job
	if err := json.Unmarshal(payload, &job); err != nil {
		w.logger.Error().Err(err).Str("payload", string(payload)).Msg("Malformed job, skipping")
		return
	}
	logger := logging.WithJobID(w.logger, job.ID)
	logger.Info().Str("symbol", job.Symbol).Str("strategy", job.Strategy).Msg("Job started")

	w.publish(ctx, Progress{JobID: job.ID, Status: StatusStarted, TS: time.Now().UTC()})

	outcome, err := w.handler(logging.WithLogger(ctx, logger), job)
	if err != nil {
		logger.Error().Err(err).Msg("Job failed")
		w.publish(ctx, Progress{JobID: job.ID, Status: StatusFailed, Detail: err.Error(), TS: time.Now().UTC()})
		return
	}

	logger.Info().Int("fills", outcome.Fills).Float64("pnl", outcome.RealizedPnL).Msg("Job finished")
	w.publish(ctx, Progress{
		JobID:  job.ID,
		Status: StatusFinished,
		Fills:  outcome.Fills,
		PnL:    outcome.RealizedPnL,
		TS:     time.Now().UTC(),
	})
}

// publish sends a progress event, retrying briefly. A lost progress
// event never fails the job itself.
func (w *Worker) publish(ctx context.Context, p Progress) {
	payload, err := json.Marshal(p)
	if err != nil {
		w.logger.Error().Err(err).Msg("Encoding progress event failed")
		return
	}
	err = utils.Retry(ctx, utils.RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2,
	}, func() error {
		return w.rdb.Publish(ctx, w.cfg.ProgressChannel, payload).Err()
	})
	if err != nil {
		w.logger.Warn().Err(err).Str("job_id", p.JobID).Msg("Progress publish failed")
	}
}

// Enqueue pushes a job onto the queue. Used by the CLI submit path and
// by tests.
func Enqueue(ctx context.Context, rdb *redis.Client, queue string, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding job: %w", err)
	}
	return rdb.RPush(ctx, queue, payload).Err()
}
