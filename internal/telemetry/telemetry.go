// Package telemetry exposes run counters as Prometheus metrics. The
// counters are process-global so every component can increment them
// without plumbing a registry through constructors.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TicksProcessed counts market events that reached the strategy.
	TicksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trader",
		Name:      "ticks_processed_total",
		Help:      "Market events processed by the engine.",
	})

	// SignalsRaw counts signals emitted by strategies before sizing.
	SignalsRaw = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trader",
		Name:      "signals_raw_total",
		Help:      "Signals emitted by strategies before sizing and risk.",
	})

	// SignalsDropped counts signals removed by a pipeline stage.
	SignalsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trader",
		Name:      "signals_dropped_total",
		Help:      "Signals dropped, partitioned by pipeline stage.",
	}, []string{"stage"})

	// OrdersFilled counts broker fills.
	OrdersFilled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trader",
		Name:      "orders_filled_total",
		Help:      "Orders filled by the broker.",
	})

	// OrdersDuplicate counts idempotency hits on client order ids.
	OrdersDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trader",
		Name:      "orders_duplicate_total",
		Help:      "Orders skipped because the client order id was already executed.",
	})

	// OrdersBlocked counts orders refused by the broker.
	OrdersBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trader",
		Name:      "orders_blocked_total",
		Help:      "Orders blocked by the broker, e.g. sells with no position.",
	})

	// Reconnects counts market-stream reconnect attempts.
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trader",
		Name:      "stream_reconnects_total",
		Help:      "Market data stream reconnect attempts.",
	})

	// DailyPnL gauges the realized plus unrealized P&L for the day.
	DailyPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trader",
		Name:      "daily_pnl",
		Help:      "Realized plus unrealized P&L since the last day boundary.",
	})

	// BreakerTripped gauges whether the daily loss breaker is open.
	BreakerTripped = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trader",
		Name:      "breaker_tripped",
		Help:      "1 when the daily loss breaker is blocking new orders.",
	})
)

// Handler returns the metrics HTTP handler for a scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr. It blocks, so run it in a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(addr, mux)
}
