package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// v3QuoteParams matches the quoter's quoteExactInputSingle tuple.
type v3QuoteParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

// quoteExactInputSingle asks the v3 quoter how much tokenOut a given amountIn
// of tokenIn converts to on the configured fee tier.
func (c *Client) quoteExactInputSingle(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
	data, err := quoterABI.Pack("quoteExactInputSingle", v3QuoteParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               c.poolFee,
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, c.quoter, data)
	if err != nil {
		return nil, fmt.Errorf("quoter call: %w", err)
	}
	results, err := quoterABI.Unpack("quoteExactInputSingle", out)
	if err != nil {
		return nil, err
	}
	return results[0].(*big.Int), nil
}

// QuoterSource reads the pair price off the v3 pool quoter: the quote-token
// output for exactly one wrapped base unit.
type QuoterSource struct {
	client *Client
}

// NewQuoterSource returns the pool-quoter price source.
func NewQuoterSource(client *Client) *QuoterSource {
	return &QuoterSource{client: client}
}

func (s *QuoterSource) Name() string { return "pool-quoter" }

// Price returns the quote-token value of one base unit.
func (s *QuoterSource) Price(ctx context.Context) (float64, error) {
	out, err := s.client.quoteExactInputSingle(ctx,
		s.client.wrappedBase, s.client.quoteToken, toWei(1))
	if err != nil {
		return 0, err
	}
	return fromWei(out), nil
}

// ChainlinkSource reads the pair price from a Chainlink aggregator feed.
// Feed answers carry 8 decimals.
type ChainlinkSource struct {
	client *Client
}

// NewChainlinkSource returns the Chainlink price source.
func NewChainlinkSource(client *Client) *ChainlinkSource {
	return &ChainlinkSource{client: client}
}

func (s *ChainlinkSource) Name() string { return "chainlink" }

func (s *ChainlinkSource) Price(ctx context.Context) (float64, error) {
	data, err := chainlinkABI.Pack("latestRoundData")
	if err != nil {
		return 0, err
	}
	out, err := s.client.call(ctx, s.client.chainlinkFeed, data)
	if err != nil {
		return 0, fmt.Errorf("chainlink call: %w", err)
	}
	results, err := chainlinkABI.Unpack("latestRoundData", out)
	if err != nil {
		return 0, err
	}
	answer := results[1].(*big.Int)
	if answer.Sign() <= 0 {
		return 0, fmt.Errorf("chainlink returned non-positive answer %s", answer)
	}
	price, _ := new(big.Float).Quo(
		new(big.Float).SetInt(answer),
		new(big.Float).SetFloat64(1e8),
	).Float64()
	return price, nil
}
