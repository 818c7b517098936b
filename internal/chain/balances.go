package chain

import (
	"context"
	"fmt"

	"limitswap/internal/domain"
	"limitswap/internal/ledger"
)

// Compile-time interface check.
var _ ledger.BalanceReader = (*Balances)(nil)

// Balances maps pair assets onto the right balance read: native for the base
// asset, ERC-20 for the quote token.
type Balances struct {
	c    *Client
	pair domain.Pair
}

// NewBalances returns a BalanceReader for the configured pair.
func NewBalances(c *Client, pair domain.Pair) *Balances {
	return &Balances{c: c, pair: pair}
}

// Balance returns the wallet's balance for the given pair asset.
func (b *Balances) Balance(ctx context.Context, wallet domain.Wallet, asset domain.Asset) (float64, error) {
	switch asset {
	case b.pair.Base:
		return b.c.NativeBalance(ctx, wallet.Address)
	case b.pair.Quote:
		return b.c.QuoteTokenBalance(ctx, wallet.Address)
	}
	return 0, fmt.Errorf("unknown asset %q", asset)
}
