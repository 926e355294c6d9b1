// Package engine owns the run loop and ties the market event source to
// the signal pipeline and broker.
package engine

import (
	"context"

	"github.com/rs/zerolog"

	apperrors "algo-trader/internal/errors"
	"algo-trader/internal/models"
)

// EventSource produces the tick sequence that drives a run. Setup is
// called exactly once before the first Next; Teardown is called exactly
// once after the last, whether the run ended cleanly or not. Next
// signals a finished sequence with errors.ErrStreamEnded and a
// requested stop with errors.ErrSourceStopped.
type EventSource interface {
	Setup(ctx context.Context) error
	Next(ctx context.Context) (models.Tick, error)
	Teardown() error
}

// RunLoop drives onTick with events from src until the source ends, the
// context is done, maxEvents is reached (0 means unlimited) or onTick
// fails. Teardown always runs; its error is logged, never returned, so
// it cannot mask the real cause of the stop.
func RunLoop(ctx context.Context, src EventSource, maxEvents int, onTick func(models.Tick) error, logger zerolog.Logger) (processed int, err error) {
	if err := src.Setup(ctx); err != nil {
		return 0, apperrors.Wrap(err, "event source setup")
	}
	defer func() {
		if terr := src.Teardown(); terr != nil {
			logger.Warn().Err(terr).Msg("Event source teardown failed")
		}
	}()

	for {
		if maxEvents > 0 && processed >= maxEvents {
			return processed, nil
		}
		if ctx.Err() != nil {
			return processed, nil
		}

		tick, err := src.Next(ctx)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrStreamEnded) || apperrors.Is(err, apperrors.ErrSourceStopped) {
				return processed, nil
			}
			return processed, err
		}

		if err := onTick(tick); err != nil {
			return processed, err
		}
		processed++
	}
}

// SliceEventSource replays a fixed tick slice, ending the stream after
// the last element. Used by backtests and tests.
type SliceEventSource struct {
	Ticks []models.Tick

	idx       int
	SetupRuns int
	TornDown  bool
}

// NewSliceEventSource creates a replay source over ticks.
func NewSliceEventSource(ticks []models.Tick) *SliceEventSource {
	return &SliceEventSource{Ticks: ticks}
}

func (s *SliceEventSource) Setup(ctx context.Context) error {
	s.SetupRuns++
	s.idx = 0
	return nil
}

func (s *SliceEventSource) Next(ctx context.Context) (models.Tick, error) {
	if err := ctx.Err(); err != nil {
		return models.Tick{}, apperrors.ErrSourceStopped
	}
	if s.idx >= len(s.Ticks) {
		return models.Tick{}, apperrors.ErrStreamEnded
	}
	tick := s.Ticks[s.idx]
	s.idx++
	return tick, nil
}

func (s *SliceEventSource) Teardown() error {
	s.TornDown = true
	return nil
}
