// Package domain defines the core types shared across the limitswap engine:
// orders, assets, wallets, and execution results.
package domain

import "time"

// Asset is a tradeable asset symbol, e.g. "BNB" or "USDT".
type Asset string

// Pair is the convertible pair the engine operates on. Prices are always
// expressed as quote units per base unit.
type Pair struct {
	Base  Asset
	Quote Asset
}

// Direction describes what an order does with the base asset.
type Direction string

const (
	// DirectionAcquire spends the quote asset to obtain the base asset.
	DirectionAcquire Direction = "acquire"
	// DirectionDispose spends the base asset to obtain the quote asset.
	DirectionDispose Direction = "dispose"
)

// Inverse returns the opposite direction. A take-profit order always runs
// counter to its parent.
func (d Direction) Inverse() Direction {
	if d == DirectionAcquire {
		return DirectionDispose
	}
	return DirectionAcquire
}

// Status is the lifecycle state of an order.
type Status string

const (
	// StatusPending orders are evaluated against the oracle price every tick.
	StatusPending Status = "pending"
	// StatusWaiting orders are take-profits parked until their parent executes.
	StatusWaiting Status = "waiting_for_execution"
	// StatusExecuted and StatusCancelled are terminal.
	StatusExecuted  Status = "executed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusExecuted || s == StatusCancelled
}

// Wallet identifies a wallet by name and chain address. The engine never
// holds key material; signing happens inside the chain adapter.
type Wallet struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Order is the central persisted entity. Orders are never deleted; executed
// and cancelled orders remain for audit and PnL replay.
type Order struct {
	ID            int64     `json:"id"`
	WalletName    string    `json:"wallet_name"`
	WalletAddress string    `json:"wallet_address"`
	Direction     Direction `json:"direction"`

	// Amount is the quantity of the input asset committed to this order:
	// quote units for acquire orders, base units for dispose orders. Fixed at
	// creation, except for take-profits whose terms are recomputed once when
	// the parent executes.
	Amount       float64 `json:"amount"`
	TriggerPrice float64 `json:"trigger_price"`

	// Informational snapshots; never consulted by execution logic.
	PriceAtCreation float64 `json:"price_at_creation"`
	ExpectedOutput  float64 `json:"expected_output"`

	Status Status `json:"status"`

	// LinkedOrderID points at the parent order for take-profit orders, and
	// ProfitTarget is the desired realized profit in quote units. Both are
	// zero for standalone orders.
	LinkedOrderID int64   `json:"linked_order_id,omitempty"`
	ProfitTarget  float64 `json:"profit_target,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	ExecutedAt  time.Time `json:"executed_at,omitzero"`
	CancelledAt time.Time `json:"cancelled_at,omitzero"`

	// Execution outcome. ActualOutput is the realized output-asset quantity
	// reported by the route; the PnL calculator depends on it.
	ExecutionPrice float64 `json:"execution_price,omitempty"`
	ActualOutput   float64 `json:"actual_output,omitempty"`
	TxRef          string  `json:"tx_ref,omitempty"`
	RouteUsed      string  `json:"route,omitempty"`

	CancelReason string `json:"cancel_reason,omitempty"`

	// Most recent evaluation failure, kept so pending listings can show why
	// an order has not executed yet.
	LastError     string    `json:"last_error,omitempty"`
	LastAttemptAt time.Time `json:"last_attempt_at,omitzero"`
}

// Wallet returns the owning wallet reference.
func (o *Order) Wallet() Wallet {
	return Wallet{Name: o.WalletName, Address: o.WalletAddress}
}

// InputAsset returns the asset this order spends.
func (o *Order) InputAsset(p Pair) Asset {
	if o.Direction == DirectionAcquire {
		return p.Quote
	}
	return p.Base
}

// OutputAsset returns the asset this order receives.
func (o *Order) OutputAsset(p Pair) Asset {
	if o.Direction == DirectionAcquire {
		return p.Base
	}
	return p.Quote
}

// Triggered reports whether the order is eligible to execute at the given
// price: dispose orders fire when the price rises to the trigger, acquire
// orders when it falls to the trigger.
func (o *Order) Triggered(price float64) bool {
	if o.Direction == DirectionDispose {
		return price >= o.TriggerPrice
	}
	return price <= o.TriggerPrice
}

// ExecutionResult is what a completed swap yields.
type ExecutionResult struct {
	// ActualOutput is the realized output-asset quantity.
	ActualOutput float64
	// TxRef is the opaque transaction reference from the route.
	TxRef string
	// Route names the route that completed the swap.
	Route string
	// UnwrapErr is set when the post-swap unwrap of the wrapped base asset
	// failed. The swap itself still succeeded.
	UnwrapErr error
}
