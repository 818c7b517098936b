// Package ledger derives locked and spendable balances. Nothing is stored:
// locked amounts are recomputed from open orders on every call, so the
// figures can never drift from the order book.
package ledger

import (
	"context"

	"limitswap/internal/domain"
	"limitswap/internal/store"
)

// BalanceReader reports a wallet's on-chain balance for an asset.
type BalanceReader interface {
	Balance(ctx context.Context, wallet domain.Wallet, asset domain.Asset) (float64, error)
}

// Ledger computes balance views over the order store.
type Ledger struct {
	store    store.Store
	balances BalanceReader
	pair     domain.Pair
}

// New creates a Ledger.
func New(st store.Store, balances BalanceReader, pair domain.Pair) *Ledger {
	return &Ledger{store: st, balances: balances, pair: pair}
}

// Locked sums the input-asset commitments of the wallet's pending orders.
/// Waiting take-profits are excluded: their input is the parent's output,
// which does not exist until the parent executes.
func (l *Ledger) Locked(ctx context.Context, walletName string, asset domain.Asset) (float64, error) {
	pending, err := l.store.ListByStatus(ctx, domain.StatusPending)
	if err != nil {
		return 0, err
	}
	var locked float64
	for _, o := range pending {
		if o.WalletName == walletName && o.InputAsset(l.pair) == asset {
			locked += o.Amount
		}
	}
	return locked, nil
}

// Spendable is the on-chain balance minus the locked amount. It can go
// slightly negative when the chain balance drifts below commitments; callers
// treat that as zero headroom.
func (l *Ledger) Spendable(ctx context.Context, wallet domain.Wallet, asset domain.Asset) (float64, error) {
	balance, err := l.balances.Balance(ctx, wallet, asset)
	if err != nil {
		return 0, err
	}
	locked, err := l.Locked(ctx, wallet.Name, asset)
	if err != nil {
		return 0, err
	}
	return balance - locked, nil
}

// View is a point-in-time balance summary for one wallet asset.
type View struct {
	Asset     domain.Asset `json:"asset"`
	Balance   float64      `json:"balance"`
	Locked    float64      `json:"locked"`
	Spendable float64      `json:"spendable"`
}

// Views returns balance summaries for both pair assets of a wallet.
func (l *Ledger) Views(ctx context.Context, wallet domain.Wallet) ([]View, error) {
	out := make([]View, 0, 2)
	for _, asset := range []domain.Asset{l.pair.Base, l.pair.Quote} {
		balance, err := l.balances.Balance(ctx, wallet, asset)
		if err != nil {
			return nil, err
		}
		locked, err := l.Locked(ctx, wallet.Name, asset)
		if err != nil {
			return nil, err
		}
		out = append(out, View{
			Asset:     asset,
			Balance:   balance,
			Locked:    locked,
			Spendable: balance - locked,
		})
	}
	return out, nil
}
