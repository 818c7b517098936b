// Package httpapi exposes the order engine over a JSON REST API: order
// management, balance views, and realized PnL reports.
package httpapi

import (
	"limitswap/internal/domain"
	"limitswap/internal/ledger"
	"limitswap/internal/pnl"
)

// CreateOrderRequest is the body of POST /api/orders.
type CreateOrderRequest struct {
	Wallet       string  `json:"wallet"`
	Direction    string  `json:"direction"`
	Amount       float64 `json:"amount"`
	TriggerPrice float64 `json:"trigger_price"`

	// ProfitTarget, when positive, attaches a linked take-profit order.
	ProfitTarget float64 `json:"profit_target,omitempty"`
}

// TakeProfitRequest is the body of POST /api/orders/{id}/take-profit.
type TakeProfitRequest struct {
	ProfitTarget float64 `json:"profit_target"`
}

// CancelRequest is the body of POST /api/orders/{id}/cancel.
type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CancelResponse lists every order a cancellation touched: the order itself
// first, then any cascaded take-profit.
type CancelResponse struct {
	Cancelled []domain.Order `json:"cancelled"`
}

// OrdersResponse lists orders.
type OrdersResponse struct {
	Orders []*domain.Order `json:"orders"`
}

// PriceResponse reports the current oracle price.
type PriceResponse struct {
	Pair  string  `json:"pair"`
	Price float64 `json:"price"`
}

// WalletsResponse lists the configured wallet names.
type WalletsResponse struct {
	Wallets []string `json:"wallets"`
}

// BalancesResponse holds one wallet's per-asset balance views.
type BalancesResponse struct {
	Wallet   string        `json:"wallet"`
	Balances []ledger.View `json:"balances"`
}

// PnlResponse wraps a wallet's realized PnL report.
type PnlResponse struct {
	Report *pnl.Report `json:"report"`
}

// ExportResponse reports where a PnL export landed.
type ExportResponse struct {
	Path   string `json:"path"`
	Trades int    `json:"trades"`
}
