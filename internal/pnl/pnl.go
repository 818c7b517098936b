// Package pnl computes realized profit and loss per wallet by replaying
// executed orders through a FIFO lot queue. The computation is a pure
// function of the order history: re-running it never changes the result.
package pnl

import (
	"sort"
	"time"

	"limitswap/internal/domain"
)

// Lot is an unconsumed acquisition: base quantity still held and the quote
// cost attributed to it.
type Lot struct {
	OrderID   int64   `json:"order_id"`
	BaseQty   float64 `json:"base_qty"`
	CostBasis float64 `json:"cost_basis"`
}

// Trade is one realized disposal.
type Trade struct {
	OrderID    int64     `json:"order_id"`
	ExecutedAt time.Time `json:"executed_at"`
	BaseQty    float64   `json:"base_qty"`
	Proceeds   float64   `json:"proceeds"`
	CostBasis  float64   `json:"cost_basis"`
	Realized   float64   `json:"realized"`

	// LotOrderIDs are the acquire orders this disposal consumed, oldest first.
	LotOrderIDs []int64 `json:"lot_order_ids,omitempty"`

	// RealizedPct is the realized profit relative to the cost basis, in
	// percent. Zero when the cost basis is zero.
	RealizedPct float64 `json:"realized_pct"`

	// UnmatchedBase is the disposed quantity that exceeded the tracked lot
	// inventory. It carries a zero cost basis, which overstates the realized
	// figure; Shortfall flags the trade so the reader does not trust it
	// blindly.
	UnmatchedBase float64 `json:"unmatched_base,omitempty"`
	Shortfall     bool    `json:"shortfall,omitempty"`
}

// Report aggregates one wallet's realized PnL.
type Report struct {
	Wallet   string  `json:"wallet"`
	Trades   []Trade `json:"trades"`
	OpenLots []Lot   `json:"open_lots"`

	TradeCount      int     `json:"trade_count"`
	Wins            int     `json:"wins"`
	TotalProceeds   float64 `json:"total_proceeds"`
	TotalCost       float64 `json:"total_cost"`
	TotalRealized   float64 `json:"total_realized"`
	AvgRealized     float64 `json:"avg_realized"`
	ShortfallTrades int     `json:"shortfall_trades,omitempty"`
	Shortfall       bool    `json:"shortfall,omitempty"`
}

// Compute replays all executed orders and returns per-wallet reports.
// Orders in non-executed states are ignored.
func Compute(orders []*domain.Order) map[string]*Report {
	executed := make([]*domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status == domain.StatusExecuted {
			executed = append(executed, o)
		}
	}
	// Replay in execution order; ids break ties for orders landing in the
	// same instant.
	sort.Slice(executed, func(i, j int) bool {
		if executed[i].ExecutedAt.Equal(executed[j].ExecutedAt) {
			return executed[i].ID < executed[j].ID
		}
		return executed[i].ExecutedAt.Before(executed[j].ExecutedAt)
	})

	reports := make(map[string]*Report)
	lots := make(map[string][]Lot)

	for _, o := range executed {
		rep := reports[o.WalletName]
		if rep == nil {
			rep = &Report{Wallet: o.WalletName}
			reports[o.WalletName] = rep
		}

		if o.Direction == domain.DirectionAcquire {
			// Amount is the quote spent, ActualOutput the base received.
			lots[o.WalletName] = append(lots[o.WalletName], Lot{
				OrderID:   o.ID,
				BaseQty:   o.ActualOutput,
				CostBasis: o.Amount,
			})
			continue
		}

		trade := consume(lots, o)
		rep.Trades = append(rep.Trades, trade)
		rep.TradeCount++
		rep.TotalProceeds += trade.Proceeds
		rep.TotalCost += trade.CostBasis
		rep.TotalRealized += trade.Realized
		if trade.Realized > 0 {
			rep.Wins++
		}
		if trade.Shortfall {
			rep.ShortfallTrades++
			rep.Shortfall = true
		}
	}

	for wallet, rep := range reports {
		rep.OpenLots = lots[wallet]
		if rep.TradeCount > 0 {
			rep.AvgRealized = rep.TotalRealized / float64(rep.TradeCount)
		}
	}
	return reports
}

// ComputeWallet returns one wallet's report, empty when the wallet has no
// executed orders.
func ComputeWallet(orders []*domain.Order, wallet string) *Report {
	rep := Compute(orders)[wallet]
	if rep == nil {
		rep = &Report{Wallet: wallet}
	}
	return rep
}

// consume matches a disposal against the wallet's FIFO lot queue. Partially
// consumed lots shrink proportionally in both quantity and cost.
func consume(lots map[string][]Lot, o *domain.Order) Trade {
	trade := Trade{
		OrderID:    o.ID,
		ExecutedAt: o.ExecutedAt,
		BaseQty:    o.Amount,
		Proceeds:   o.ActualOutput,
	}

	remaining := o.Amount
	queue := lots[o.WalletName]
	for remaining > 0 && len(queue) > 0 {
		lot := &queue[0]
		trade.LotOrderIDs = append(trade.LotOrderIDs, lot.OrderID)
		if lot.BaseQty <= remaining {
			trade.CostBasis += lot.CostBasis
			remaining -= lot.BaseQty
			queue = queue[1:]
			continue
		}
		fraction := remaining / lot.BaseQty
		consumedCost := lot.CostBasis * fraction
		trade.CostBasis += consumedCost
		lot.BaseQty -= remaining
		lot.CostBasis -= consumedCost
		remaining = 0
	}
	lots[o.WalletName] = queue

	if remaining > 1e-12 {
		trade.UnmatchedBase = remaining
		trade.Shortfall = true
	}
	trade.Realized = trade.Proceeds - trade.CostBasis
	if trade.CostBasis > 0 {
		trade.RealizedPct = trade.Realized / trade.CostBasis * 100
	}
	return trade
}
