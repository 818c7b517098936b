package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"limitswap/internal/domain"
	"limitswap/internal/router"
)

// Compile-time interface checks.
var (
	_ router.Route    = (*V2Route)(nil)
	_ router.Approver = (*V2Route)(nil)
)

// v2Deadline bounds how long a submitted v2 swap stays valid in the mempool.
const v2Deadline = 2 * time.Minute

// V2Route is the fallback through the legacy constant-product router. Its
// acquire swaps pay out native directly, so no unwrap step is needed.
type V2Route struct {
	c *Client
}

// NewV2Route returns the fallback route.
func NewV2Route(c *Client) *V2Route {
	return &V2Route{c: c}
}

func (r *V2Route) Name() string { return "v2" }

// Quote asks the router for the expected output along the pair path.
func (r *V2Route) Quote(ctx context.Context, o *domain.Order) (float64, error) {
	data, err := v2RouterABI.Pack("getAmountsOut", toWei(o.Amount), r.path(o))
	if err != nil {
		return 0, err
	}
	out, err := r.c.call(ctx, r.c.v2Router, data)
	if err != nil {
		return 0, fmt.Errorf("getAmountsOut: %w", err)
	}
	results, err := v2RouterABI.Unpack("getAmountsOut", out)
	if err != nil {
		return 0, err
	}
	amounts := results[0].([]*big.Int)
	if len(amounts) < 2 {
		return 0, fmt.Errorf("getAmountsOut returned %d amounts", len(amounts))
	}
	return fromWei(amounts[len(amounts)-1]), nil
}

// EnsureApproval raises the quote-token allowance for acquire orders.
func (r *V2Route) EnsureApproval(ctx context.Context, o *domain.Order) error {
	if o.Direction != domain.DirectionAcquire {
		return nil
	}
	return r.c.ensureAllowance(ctx, o.WalletName, o.WalletAddress,
		r.c.quoteToken, r.c.v2Router, toWei(o.Amount))
}

// Submit executes the swap. Acquire uses swapExactTokensForETH so the output
// arrives as native; dispose uses swapExactETHForTokens with value attached.
func (r *V2Route) Submit(ctx context.Context, o *domain.Order, minOut float64) (*domain.ExecutionResult, error) {
	amountIn := toWei(o.Amount)
	to := common.HexToAddress(o.WalletAddress)
	deadline := big.NewInt(time.Now().Add(v2Deadline).Unix())

	var data []byte
	var value *big.Int
	var err error
	if o.Direction == domain.DirectionAcquire {
		data, err = v2RouterABI.Pack("swapExactTokensForETH",
			amountIn, toWei(minOut), r.path(o), to, deadline)
		value = big.NewInt(0)
	} else {
		data, err = v2RouterABI.Pack("swapExactETHForTokens",
			toWei(minOut), r.path(o), to, deadline)
		value = amountIn
	}
	if err != nil {
		return nil, err
	}

	before, err := r.outputBalance(ctx, o)
	if err != nil {
		return nil, err
	}

	receipt, err := r.c.sendTx(ctx, o.WalletName, r.c.v2Router, value, data, swapGasLimit)
	if err != nil {
		return nil, err
	}

	after, err := r.outputBalance(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("swap landed in %s but output read failed: %w",
			receipt.TxHash.Hex(), err)
	}

	output := after - before
	if o.Direction == domain.DirectionAcquire {
		// The native delta includes the gas spent on the swap itself; add it
		// back so the output reflects what the route actually paid out.
		output += gasCost(receipt, r.c.gasPrice)
	}

	return &domain.ExecutionResult{
		ActualOutput: output,
		TxRef:        receipt.TxHash.Hex(),
	}, nil
}

// path returns the two-hop swap path for the order.
func (r *V2Route) path(o *domain.Order) []common.Address {
	if o.Direction == domain.DirectionAcquire {
		return []common.Address{r.c.quoteToken, r.c.wrappedBase}
	}
	return []common.Address{r.c.wrappedBase, r.c.quoteToken}
}

// outputBalance reads the balance the swap output lands in: native base for
// acquire, quote token for dispose.
func (r *V2Route) outputBalance(ctx context.Context, o *domain.Order) (float64, error) {
	if o.Direction == domain.DirectionAcquire {
		return r.c.NativeBalance(ctx, o.WalletAddress)
	}
	return r.c.QuoteTokenBalance(ctx, o.WalletAddress)
}
