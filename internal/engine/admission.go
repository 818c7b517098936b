package engine

import (
	"context"
	"fmt"

	"limitswap/internal/domain"
)

// CreateRequest carries everything needed to admit a new order.
type CreateRequest struct {
	Wallet       domain.Wallet
	Direction    domain.Direction
	Amount       float64
	TriggerPrice float64

	// ProfitTarget, when positive, attaches a linked take-profit in quote
	// units of desired profit.
	ProfitTarget float64
}

// validateRequest checks static order parameters before any balance or price
// lookups happen.
func validateRequest(req CreateRequest) error {
	if req.Wallet.Name == "" || req.Wallet.Address == "" {
		return fmt.Errorf("wallet name and address are required")
	}
	if req.Direction != domain.DirectionAcquire && req.Direction != domain.DirectionDispose {
		return fmt.Errorf("unknown direction %q", req.Direction)
	}
	if req.Amount <= 0 {
		return fmt.Errorf("amount must be positive, got %v", req.Amount)
	}
	if req.TriggerPrice <= 0 {
		return fmt.Errorf("trigger price must be positive, got %v", req.TriggerPrice)
	}
	if req.ProfitTarget < 0 {
		return fmt.Errorf("profit target must not be negative, got %v", req.ProfitTarget)
	}
	return nil
}

// checkFunds verifies the wallet can cover the order's input amount on top of
// its existing pending commitments.
func (e *Engine) checkFunds(ctx context.Context, wallet domain.Wallet, asset domain.Asset, amount float64) error {
	spendable, err := e.ledger.Spendable(ctx, wallet, asset)
	if err != nil {
		return fmt.Errorf("reading spendable balance: %w", err)
	}
	if amount > spendable {
		return fmt.Errorf("%w: order needs %.8f %s, wallet %s has %.8f spendable",
			domain.ErrInsufficientBalance, amount, asset, wallet.Name, spendable)
	}
	return nil
}

// recheckFunds re-validates an already-admitted pending order right before
// execution: its own amount is part of the locked sum, so the headroom for
// this order is spendable plus its amount.
func (e *Engine) recheckFunds(ctx context.Context, o *domain.Order) error {
	asset := o.InputAsset(e.pair)
	spendable, err := e.ledger.Spendable(ctx, o.Wallet(), asset)
	if err != nil {
		return fmt.Errorf("reading spendable balance: %w", err)
	}
	available := spendable + o.Amount
	if available < o.Amount {
		return fmt.Errorf("%w: order %d needs %.8f %s, wallet %s has %.8f available",
			domain.ErrInsufficientBalance, o.ID, o.Amount, asset, o.WalletName, available)
	}
	return nil
}
