// Package router drives swap execution: quote, approval, submission with
// slippage protection, one fallback route, and optional post-swap unwrap.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"limitswap/internal/domain"
)

// Route is a single swap venue. Quote returns the expected output-asset
// quantity for the order's full input amount; Submit executes the swap and
// reports what actually happened.
type Route interface {
	Name() string
	Quote(ctx context.Context, o *domain.Order) (float64, error)
	Submit(ctx context.Context, o *domain.Order, minOut float64) (*domain.ExecutionResult, error)
}

// Approver is implemented by routes that spend an ERC-20 input and may need
// an allowance raised before Submit.
type Approver interface {
	EnsureApproval(ctx context.Context, o *domain.Order) error
}

// Unwrapper is implemented by routes whose acquire output lands as the
// wrapped base asset rather than the native one.
type Unwrapper interface {
	Unwrap(ctx context.Context, o *domain.Order) error
}

// Router executes orders against an ordered route list, primary first. Each
// route gets exactly one attempt per Execute call; further retries happen on
// later evaluation ticks.
type Router struct {
	routes      []Route
	slippage    float64
	swapTimeout time.Duration
	autoUnwrap  bool
	log         *slog.Logger
}

// New creates a Router. Routes are tried in the given order.
func New(routes []Route, slippage float64, swapTimeout time.Duration, autoUnwrap bool, log *slog.Logger) *Router {
	return &Router{
		routes:      routes,
		slippage:    slippage,
		swapTimeout: swapTimeout,
		autoUnwrap:  autoUnwrap,
		log:         log,
	}
}

// Execute swaps the order's input amount. On success the result carries the
// realized output; when every route fails the error wraps
// domain.ErrSwapFailed and the order is left untouched for a later retry.
func (r *Router) Execute(ctx context.Context, o *domain.Order) (*domain.ExecutionResult, error) {
	var lastErr error
	for _, route := range r.routes {
		res, err := r.attempt(ctx, route, o)
		if err != nil {
			r.log.Warn("route attempt failed",
				"route", route.Name(), "order_id", o.ID, "error", err)
			lastErr = err
			continue
		}

		if r.autoUnwrap && o.Direction == domain.DirectionAcquire {
			if uw, ok := route.(Unwrapper); ok {
				if err := uw.Unwrap(ctx, o); err != nil {
					// The swap already succeeded; the wallet keeps the wrapped
					// asset and the failure is surfaced, not rolled back.
					res.UnwrapErr = fmt.Errorf("%w: %v", domain.ErrUnwrapFailed, err)
					r.log.Error("post-swap unwrap failed",
						"route", route.Name(), "order_id", o.ID, "error", err)
				}
			}
		}

		r.log.Info("swap executed",
			"route", route.Name(), "order_id", o.ID,
			"amount", o.Amount, "output", res.ActualOutput, "tx", res.TxRef)
		return res, nil
	}

	return nil, fmt.Errorf("%w: %v", domain.ErrSwapFailed, lastErr)
}

// attempt runs one route end to end: quote, approval if the route needs it,
// then submission with the slippage floor applied to the quote.
func (r *Router) attempt(parent context.Context, route Route, o *domain.Order) (*domain.ExecutionResult, error) {
	ctx := parent
	if r.swapTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, r.swapTimeout)
		defer cancel()
	}

	quote, err := route.Quote(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}
	if quote <= 0 {
		return nil, fmt.Errorf("quote returned non-positive output %v", quote)
	}

	if ap, ok := route.(Approver); ok {
		if err := ap.EnsureApproval(ctx, o); err != nil {
			return nil, fmt.Errorf("approval: %w", err)
		}
	}

	minOut := quote * (1 - r.slippage)
	res, err := route.Submit(ctx, o, minOut)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	res.Route = route.Name()
	return res, nil
}
