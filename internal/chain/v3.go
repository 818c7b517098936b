package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"limitswap/internal/domain"
	"limitswap/internal/router"
)

// Compile-time interface checks.
var (
	_ router.Route     = (*V3Route)(nil)
	_ router.Approver  = (*V3Route)(nil)
	_ router.Unwrapper = (*V3Route)(nil)
)

// v3SwapParams matches the smart router's exactInputSingle tuple.
type v3SwapParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// V3Route swaps through the concentrated-liquidity pool on the smart router.
// Acquire output lands as the wrapped base asset; Unwrap converts it back to
// native.
type V3Route struct {
	c *Client
}

// NewV3Route returns the primary pool route.
func NewV3Route(c *Client) *V3Route {
	return &V3Route{c: c}
}

func (r *V3Route) Name() string { return "v3" }

// Quote returns the expected output for the order's full input amount.
func (r *V3Route) Quote(ctx context.Context, o *domain.Order) (float64, error) {
	tokenIn, tokenOut := r.tokens(o)
	out, err := r.c.quoteExactInputSingle(ctx, tokenIn, tokenOut, toWei(o.Amount))
	if err != nil {
		return 0, err
	}
	return fromWei(out), nil
}

// EnsureApproval raises the quote-token allowance for acquire orders. Dispose
// orders attach native value, which needs no allowance.
func (r *V3Route) EnsureApproval(ctx context.Context, o *domain.Order) error {
	if o.Direction != domain.DirectionAcquire {
		return nil
	}
	return r.c.ensureAllowance(ctx, o.WalletName, o.WalletAddress,
		r.c.quoteToken, r.c.smartRouter, toWei(o.Amount))
}

// Submit executes the swap and measures the realized output as the output
// asset's balance delta.
func (r *V3Route) Submit(ctx context.Context, o *domain.Order, minOut float64) (*domain.ExecutionResult, error) {
	tokenIn, tokenOut := r.tokens(o)
	amountIn := toWei(o.Amount)

	data, err := smartRouterABI.Pack("exactInputSingle", v3SwapParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		Fee:               r.c.poolFee,
		Recipient:         common.HexToAddress(o.WalletAddress),
		AmountIn:          amountIn,
		AmountOutMinimum:  toWei(minOut),
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return nil, err
	}

	// Dispose attaches native value; the router wraps it on the way in.
	value := big.NewInt(0)
	if o.Direction == domain.DirectionDispose {
		value = amountIn
	}

	before, err := r.outputBalance(ctx, o)
	if err != nil {
		return nil, err
	}

	receipt, err := r.c.sendTx(ctx, o.WalletName, r.c.smartRouter, value, data, swapGasLimit)
	if err != nil {
		return nil, err
	}

	after, err := r.outputBalance(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("swap landed in %s but output read failed: %w",
			receipt.TxHash.Hex(), err)
	}

	return &domain.ExecutionResult{
		ActualOutput: after - before,
		TxRef:        receipt.TxHash.Hex(),
	}, nil
}

// Unwrap withdraws the wallet's full wrapped base balance back to native.
func (r *V3Route) Unwrap(ctx context.Context, o *domain.Order) error {
	bal, err := r.c.WrappedBaseBalance(ctx, o.WalletAddress)
	if err != nil {
		return err
	}
	if bal <= 0 {
		return nil
	}
	data, err := wrappedABI.Pack("withdraw", toWei(bal))
	if err != nil {
		return err
	}
	_, err = r.c.sendTx(ctx, o.WalletName, r.c.wrappedBase, big.NewInt(0), data, unwrapGasLimit)
	return err
}

// tokens returns the input and output token addresses for the order.
func (r *V3Route) tokens(o *domain.Order) (common.Address, common.Address) {
	if o.Direction == domain.DirectionAcquire {
		return r.c.quoteToken, r.c.wrappedBase
	}
	return r.c.wrappedBase, r.c.quoteToken
}

// outputBalance reads the balance the swap output lands in: wrapped base for
// acquire, quote token for dispose.
func (r *V3Route) outputBalance(ctx context.Context, o *domain.Order) (float64, error) {
	if o.Direction == domain.DirectionAcquire {
		return r.c.WrappedBaseBalance(ctx, o.WalletAddress)
	}
	return r.c.QuoteTokenBalance(ctx, o.WalletAddress)
}
