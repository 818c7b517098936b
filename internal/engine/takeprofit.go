package engine

import (
	"fmt"

	"limitswap/internal/domain"
)

// takeProfitTerms is a take-profit's derived input amount and trigger price.
type takeProfitTerms struct {
	Amount       float64
	TriggerPrice float64
}

// computeTakeProfitTerms derives take-profit terms from an executed parent
// and the desired profit in quote units.
//
// Acquire parent: the take-profit disposes everything acquired at a price
// that returns the original spend plus the profit target, padded by the
// slippage factor so the realized proceeds still clear the target.
//
// Dispose parent: the take-profit re-acquires with the proceeds minus the
// profit target, at a proportionally lower price shaved by the slippage
// factor.
func computeTakeProfitTerms(parent *domain.Order, profitTarget, slippage float64) (takeProfitTerms, error) {
	if parent.ActualOutput <= 0 {
		return takeProfitTerms{}, fmt.Errorf("parent order %d has no output to derive take-profit terms from", parent.ID)
	}

	if parent.Direction == domain.DirectionAcquire {
		amount := parent.ActualOutput
		trigger := (parent.Amount + profitTarget) / amount * (1 + slippage)
		return takeProfitTerms{Amount: amount, TriggerPrice: trigger}, nil
	}

	amount := parent.ActualOutput - profitTarget
	if amount <= 0 {
		return takeProfitTerms{}, fmt.Errorf("profit target %.8f exceeds proceeds %.8f of order %d",
			profitTarget, parent.ActualOutput, parent.ID)
	}
	trigger := amount / parent.Amount * (1 - slippage)
	return takeProfitTerms{Amount: amount, TriggerPrice: trigger}, nil
}

// placeholderParent builds the synthetic executed parent used to compute a
// take-profit's provisional terms before the real parent executes: as if it
// filled exactly at its trigger with its expected output.
func placeholderParent(parent *domain.Order) *domain.Order {
	synthetic := *parent
	synthetic.ExecutionPrice = parent.TriggerPrice
	synthetic.ActualOutput = parent.ExpectedOutput
	return &synthetic
}

// expectedOutput estimates the output-asset quantity for an order filling at
// its trigger price, discounted by the slippage factor.
func expectedOutput(d domain.Direction, amount, trigger, slippage float64) float64 {
	if d == domain.DirectionAcquire {
		return amount / trigger * (1 - slippage)
	}
	return amount * trigger * (1 - slippage)
}

// executionPrice derives the realized price from an executed order's input
// and output quantities.
func executionPrice(o *domain.Order) float64 {
	if o.ActualOutput <= 0 {
		return 0
	}
	if o.Direction == domain.DirectionAcquire {
		return o.Amount / o.ActualOutput
	}
	return o.ActualOutput / o.Amount
}
