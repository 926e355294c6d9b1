// Package strategy defines the strategy plug-in contract and the
// reference implementations shipped with the engine.
package strategy

import (
	"fmt"
	"sort"

	"algo-trader/internal/errors"
	"algo-trader/internal/models"
)

// Strategy converts market ticks into trade intents. Implementations
// may keep arbitrary internal state; they are driven single-threaded by
// the engine loop. Ticks are read-only.
type Strategy interface {
	// OnTick returns zero or more raw signals for this tick.
	OnTick(tick models.Tick) []*models.OrderSignal
	// StrategyID is a stable identifier used in client-order-id
	// derivation. It comes from the registry name, so replays across
	// restarts regenerate the same ids.
	StrategyID() string
}

// Config selects and parameterizes a strategy from configuration.
type Config struct {
	Type   string             `mapstructure:"type"`
	Params map[string]float64 `mapstructure:"params"`
}

// Builder constructs a strategy from its registered name and params.
type Builder func(name string, params map[string]float64) (Strategy, error)

var registry = map[string]Builder{}

// Register adds a strategy builder under a name. Later registrations
// replace earlier ones.
func Register(name string, b Builder) {
	registry[name] = b
}

// Names returns the registered strategy names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build constructs a strategy from configuration. An empty config
// yields the default simple_ma strategy; an unknown type fails fast.
func Build(cfg Config) (Strategy, error) {
	name := cfg.Type
	if name == "" {
		name = "simple_ma"
	}
	b, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownStrategy, "%q (known: %v)", name, Names())
	}
	strat, err := b(name, cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("building strategy %q: %w", name, err)
	}
	return strat, nil
}

func init() {
	Register("simple_ma", func(name string, params map[string]float64) (Strategy, error) {
		return NewSimpleMA(name, params), nil
	})
	Register("tick_scalper", func(name string, params map[string]float64) (Strategy, error) {
		return NewTickScalper(name, params), nil
	})
}
