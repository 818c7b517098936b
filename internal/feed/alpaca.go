// Package feed provides the off-chain market-data price source used as the
// oracle's last fallback.
package feed

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"limitswap/internal/config"
	"limitswap/internal/oracle"
	"limitswap/internal/util"
)

// Compile-time interface check.
var _ oracle.Source = (*AlpacaSource)(nil)

// AlpacaSource reads the latest crypto trade price from the Alpaca
// market-data API. It is rate-limited to stay inside the free API tier.
type AlpacaSource struct {
	client  *marketdata.Client
	symbol  string
	limiter *util.RateLimiter
}

// NewAlpacaSource creates the feed source from the feed configuration.
func NewAlpacaSource(cfg config.FeedConfig) *AlpacaSource {
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	})
	return &AlpacaSource{
		client:  client,
		symbol:  cfg.Symbol,
		limiter: util.NewRateLimiter(cfg.RateLimitPerMin),
	}
}

func (s *AlpacaSource) Name() string { return "alpaca" }

// Price returns the latest trade price for the configured symbol.
func (s *AlpacaSource) Price(ctx context.Context) (float64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	trade, err := s.client.GetLatestCryptoTrade(s.symbol, marketdata.GetLatestCryptoTradeRequest{})
	if err != nil {
		return 0, fmt.Errorf("alpaca latest trade: %w", err)
	}
	if trade.Price <= 0 {
		return 0, fmt.Errorf("alpaca returned non-positive price %v", trade.Price)
	}
	return trade.Price, nil
}
