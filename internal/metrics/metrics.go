// Package metrics exposes Prometheus instrumentation for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PairPrice is the last price the oracle resolved.
	PairPrice = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "limitswap_pair_price",
		Help: "Last resolved pair price in quote units per base unit.",
	})

	// EvalTicks counts evaluation scheduler ticks.
	EvalTicks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "limitswap_eval_ticks_total",
		Help: "Evaluation ticks run.",
	})

	// OrdersCreated counts accepted orders by direction.
	OrdersCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "limitswap_orders_created_total",
		Help: "Orders accepted, by direction.",
	}, []string{"direction"})

	// OrdersExecuted counts executed orders by route.
	OrdersExecuted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "limitswap_orders_executed_total",
		Help: "Orders executed, by route.",
	}, []string{"route"})

	// OrdersCancelled counts cancelled orders.
	OrdersCancelled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "limitswap_orders_cancelled_total",
		Help: "Orders cancelled, including cascades.",
	})

	// SwapFailures counts execution attempts where every route failed.
	SwapFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "limitswap_swap_failures_total",
		Help: "Execution attempts that exhausted all routes.",
	})

	// PriceUnavailable counts ticks skipped for lack of a usable price.
	PriceUnavailable = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "limitswap_price_unavailable_total",
		Help: "Evaluation ticks skipped because no price source answered.",
	})
)

func init() {
	prometheus.MustRegister(
		PairPrice,
		EvalTicks,
		OrdersCreated,
		OrdersExecuted,
		OrdersCancelled,
		SwapFailures,
		PriceUnavailable,
	)
}
