package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// maxApproval is the unlimited allowance value (2^256 - 1). Approving once at
// the maximum avoids paying for an approve transaction on every acquire.
var maxApproval = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// allowance reads the ERC-20 allowance owner has granted spender.
func (c *Client) allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, token, data)
	if err != nil {
		return nil, fmt.Errorf("reading allowance: %w", err)
	}
	var remaining *big.Int
	if err := erc20ABI.UnpackIntoInterface(&remaining, "allowance", out); err != nil {
		return nil, err
	}
	return remaining, nil
}

// ensureAllowance checks the current allowance and submits a maximum approve
// when it is below the required amount. The call blocks until the approval
// transaction is mined.
func (c *Client) ensureAllowance(ctx context.Context, wallet, ownerAddr string,
	token, spender common.Address, amount *big.Int) error {

	owner := common.HexToAddress(ownerAddr)
	current, err := c.allowance(ctx, token, owner, spender)
	if err != nil {
		return err
	}
	if current.Cmp(amount) >= 0 {
		return nil
	}

	c.log.Info("raising token allowance",
		"wallet", wallet, "token", token.Hex(), "spender", spender.Hex())

	data, err := erc20ABI.Pack("approve", spender, maxApproval)
	if err != nil {
		return err
	}
	_, err = c.sendTx(ctx, wallet, token, big.NewInt(0), data, approveGasLimit)
	if err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	return nil
}

// gasCost returns the native cost of a mined transaction in whole units.
// fallbackPrice covers nodes that omit the effective gas price.
func gasCost(receipt *types.Receipt, fallbackPrice *big.Int) float64 {
	price := receipt.EffectiveGasPrice
	if price == nil {
		price = fallbackPrice
	}
	if price == nil {
		return 0
	}
	cost := new(big.Int).Mul(price, new(big.Int).SetUint64(receipt.GasUsed))
	return fromWei(cost)
}
