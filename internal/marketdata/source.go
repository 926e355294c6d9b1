package marketdata

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "algo-trader/internal/errors"
	"algo-trader/internal/logging"
	"algo-trader/internal/models"
	"algo-trader/internal/telemetry"
)

// SourceConfig holds reconnect/backoff parameters for the event source.
type SourceConfig struct {
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	BackoffFactor  float64
	Jitter         time.Duration
}

// DefaultSourceConfig returns conservative reconnect defaults.
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		BackoffInitial: time.Second,
		BackoffMax:     30 * time.Second,
		BackoffFactor:  2,
		Jitter:         200 * time.Millisecond,
	}
}

// EventSource wraps a StreamClient into the engine's tick sequence and
// owns reconnect policy: on any stream failure (including a stream
// that ends) it sleeps min(backoffMax, backoffCurrent) plus a bounded
// random jitter, then reconnects, growing backoff geometrically up to
// the cap. Backoff is not reset after a successful reconnect: a flaky
// stretch does not earn its way back to fast retries.
type EventSource struct {
	client StreamClient
	symbol string
	cfg    SourceConfig
	logger zerolog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}

	stream  TickStream
	backoff time.Duration
	rng     *rand.Rand
}

// NewEventSource creates a market event source for a symbol.
func NewEventSource(client StreamClient, symbol string, cfg SourceConfig, logger zerolog.Logger) *EventSource {
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = time.Second
	}
	if cfg.BackoffMax < cfg.BackoffInitial {
		cfg.BackoffMax = cfg.BackoffInitial
	}
	if cfg.BackoffFactor < 1 {
		cfg.BackoffFactor = 2
	}
	return &EventSource{
		client:  client,
		symbol:  symbol,
		cfg:     cfg,
		logger:  logging.WithSymbol(logger, symbol),
		stopCh:  make(chan struct{}),
		backoff: cfg.BackoffInitial,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Stop requests cooperative shutdown. It is checked between yields and
// at the top of the retry loop, and it interrupts a backoff sleep.
func (s *EventSource) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Setup probes the wrapped client for an optional lifecycle hook and
// swallows its failure; the retry loop is the real safety net.
func (s *EventSource) Setup(ctx context.Context) error {
	var err error
	switch c := s.client.(type) {
	case setupHook:
		err = c.Setup()
	case startHook:
		err = c.Start()
	case connectHook:
		err = c.Connect()
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("Market client setup failed, will retry in loop")
	}
	return nil
}

// Teardown stops the source and probes the client for an optional
// shutdown hook, best-effort.
func (s *EventSource) Teardown() error {
	s.Stop()
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
	switch c := s.client.(type) {
	case teardownHook:
		c.Teardown()
	case stopHook:
		c.Stop()
	case closeHook:
		c.Close()
	}
	return nil
}

// Next blocks until the next tick is available, reconnecting with
// backoff on any stream failure. It returns errors.ErrSourceStopped
// once Stop has been called or the context is done; stream errors are
// never surfaced to the caller.
func (s *EventSource) Next(ctx context.Context) (models.Tick, error) {
	for {
		if s.stopped(ctx) {
			return models.Tick{}, apperrors.ErrSourceStopped
		}

		if s.stream == nil {
			stream, err := s.client.TickStream(ctx, s.symbol)
			if err != nil {
				if !s.sleepBackoff(ctx, err) {
					return models.Tick{}, apperrors.ErrSourceStopped
				}
				continue
			}
			s.stream = stream
		}

		tick, err := s.stream.Recv()
		if err != nil {
			s.stream.Close()
			s.stream = nil
			if !s.sleepBackoff(ctx, err) {
				return models.Tick{}, apperrors.ErrSourceStopped
			}
			continue
		}
		if !tick.Valid() {
			continue
		}
		return tick, nil
	}
}

func (s *EventSource) stopped(ctx context.Context) bool {
	select {
	case <-s.stopCh:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// sleepBackoff waits out the current backoff plus jitter, then grows
// the backoff. Returns false when interrupted by Stop or the context.
func (s *EventSource) sleepBackoff(ctx context.Context, cause error) bool {
	wait := s.backoff
	if wait > s.cfg.BackoffMax {
		wait = s.cfg.BackoffMax
	}
	if s.cfg.Jitter > 0 {
		wait += time.Duration(s.rng.Int63n(int64(s.cfg.Jitter)))
	}
	logging.LogReconnect(s.logger, s.symbol, wait, cause)
	telemetry.Reconnects.Inc()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-s.stopCh:
		return false
	case <-ctx.Done():
		return false
	}

	s.backoff = time.Duration(float64(s.backoff) * s.cfg.BackoffFactor)
	if s.backoff > s.cfg.BackoffMax {
		s.backoff = s.cfg.BackoffMax
	}
	return true
}
