// Package chain is the EVM transport adapter: it signs and submits swap
// transactions, reads balances and on-chain quotes, and waits for receipts.
// Nothing outside this package touches key material or raw RPC calls.
package chain

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"limitswap/internal/config"
)

// Gas limits for the transaction shapes this adapter submits.
const (
	approveGasLimit = 60_000
	swapGasLimit    = 350_000
	unwrapGasLimit  = 60_000
)

// receiptPollInterval is how often a pending transaction is re-checked.
const receiptPollInterval = 2 * time.Second

// Client wraps an EVM RPC connection with the contract addresses and signing
// keys the engine needs.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int

	quoter        common.Address
	smartRouter   common.Address
	v2Router      common.Address
	chainlinkFeed common.Address
	quoteToken    common.Address
	wrappedBase   common.Address
	poolFee       *big.Int

	gasPrice       *big.Int // nil means ask the node per transaction
	callTimeout    time.Duration
	receiptTimeout time.Duration

	keys map[string]*ecdsa.PrivateKey // wallet name -> signing key
	log  *slog.Logger
}

// Dial connects to the RPC endpoint, verifies the chain id, and loads wallet
// keys from cfg.KeysPath.
func Dial(ctx context.Context, cfg config.ChainConfig, log *slog.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", cfg.RPCURL, err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("reading chain id: %w", err)
	}
	if cfg.ChainID != 0 && chainID.Int64() != cfg.ChainID {
		eth.Close()
		return nil, fmt.Errorf("chain id mismatch: node reports %d, config expects %d",
			chainID.Int64(), cfg.ChainID)
	}

	keys, err := loadKeys(cfg.KeysPath)
	if err != nil {
		eth.Close()
		return nil, err
	}

	c := &Client{
		eth:            eth,
		chainID:        chainID,
		quoter:         common.HexToAddress(cfg.QuoterAddress),
		smartRouter:    common.HexToAddress(cfg.SmartRouterAddress),
		v2Router:       common.HexToAddress(cfg.V2RouterAddress),
		chainlinkFeed:  common.HexToAddress(cfg.ChainlinkFeedAddress),
		quoteToken:     common.HexToAddress(cfg.QuoteTokenAddress),
		wrappedBase:    common.HexToAddress(cfg.WrappedBaseAddress),
		poolFee:        big.NewInt(cfg.PoolFee),
		callTimeout:    cfg.CallTimeout.Std(),
		receiptTimeout: cfg.ReceiptTimeout.Std(),
		keys:           keys,
		log:            log,
	}
	if cfg.GasPriceGwei > 0 {
		c.gasPrice = gweiToWei(cfg.GasPriceGwei)
	}
	return c, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// loadKeys reads a JSON file mapping wallet name to hex-encoded private key.
func loadKeys(path string) (map[string]*ecdsa.PrivateKey, error) {
	if path == "" {
		return map[string]*ecdsa.PrivateKey{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keys file: %w", err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing keys file: %w", err)
	}
	keys := make(map[string]*ecdsa.PrivateKey, len(raw))
	for name, hexKey := range raw {
		key, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			return nil, fmt.Errorf("parsing key for wallet %q: %w", name, err)
		}
		keys[name] = key
	}
	return keys, nil
}

// key returns the signing key for a wallet name.
func (c *Client) key(wallet string) (*ecdsa.PrivateKey, error) {
	k, ok := c.keys[wallet]
	if !ok {
		return nil, fmt.Errorf("no signing key for wallet %q", wallet)
	}
	return k, nil
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// call performs a read-only contract call with the configured timeout.
func (c *Client) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}
	return c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// NativeBalance returns the native base-asset balance of addr in whole units.
func (c *Client) NativeBalance(ctx context.Context, addr string) (float64, error) {
	bal, err := c.eth.BalanceAt(ctx, common.HexToAddress(addr), nil)
	if err != nil {
		return 0, fmt.Errorf("reading native balance: %w", err)
	}
	return fromWei(bal), nil
}

// TokenBalance returns the ERC-20 balance of addr for the given token in
// whole units. BSC stablecoins use 18 decimals like the native asset.
func (c *Client) TokenBalance(ctx context.Context, token, addr string) (float64, error) {
	data, err := erc20ABI.Pack("balanceOf", common.HexToAddress(addr))
	if err != nil {
		return 0, err
	}
	out, err := c.call(ctx, common.HexToAddress(token), data)
	if err != nil {
		return 0, fmt.Errorf("reading token balance: %w", err)
	}
	var bal *big.Int
	if err := erc20ABI.UnpackIntoInterface(&bal, "balanceOf", out); err != nil {
		return 0, err
	}
	return fromWei(bal), nil
}

// QuoteTokenBalance returns the wallet's quote-token balance in whole units.
func (c *Client) QuoteTokenBalance(ctx context.Context, addr string) (float64, error) {
	return c.TokenBalance(ctx, c.quoteToken.Hex(), addr)
}

// WrappedBaseBalance returns the wallet's wrapped base-asset balance.
func (c *Client) WrappedBaseBalance(ctx context.Context, addr string) (float64, error) {
	return c.TokenBalance(ctx, c.wrappedBase.Hex(), addr)
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

// sendTx signs and submits a transaction from the named wallet, then blocks
// until the receipt lands or the receipt timeout expires. A reverted
// transaction is an error.
func (c *Client) sendTx(ctx context.Context, wallet string, to common.Address,
	value *big.Int, data []byte, gasLimit uint64) (*types.Receipt, error) {

	key, err := c.key(wallet)
	if err != nil {
		return nil, err
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("reading nonce: %w", err)
	}

	gasPrice := c.gasPrice
	if gasPrice == nil {
		gasPrice, err = c.eth.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("suggesting gas price: %w", err)
		}
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("submitting transaction: %w", err)
	}
	c.log.Info("transaction submitted",
		"tx", signed.Hash().Hex(), "wallet", wallet, "to", to.Hex())

	return c.waitReceipt(ctx, signed.Hash())
}

// waitReceipt polls for the transaction receipt until it lands or the
// timeout expires.
func (c *Client) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	deadline := time.Now().Add(c.receiptTimeout)
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("transaction %s reverted", hash.Hex())
			}
			return receipt, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out waiting for receipt of %s", hash.Hex())
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ---------------------------------------------------------------------------
// Unit conversion
// ---------------------------------------------------------------------------

var weiPerUnit = new(big.Float).SetFloat64(1e18)

// toWei converts a whole-unit amount to an 18-decimal integer quantity.
func toWei(amount float64) *big.Int {
	f := new(big.Float).SetFloat64(amount)
	f.Mul(f, weiPerUnit)
	wei, _ := f.Int(nil)
	return wei
}

// fromWei converts an 18-decimal integer quantity to whole units.
func fromWei(wei *big.Int) float64 {
	f := new(big.Float).SetInt(wei)
	f.Quo(f, weiPerUnit)
	out, _ := f.Float64()
	return out
}

// gweiToWei converts a gas price in gwei to wei.
func gweiToWei(gwei float64) *big.Int {
	f := new(big.Float).SetFloat64(gwei)
	f.Mul(f, new(big.Float).SetFloat64(1e9))
	wei, _ := f.Int(nil)
	return wei
}
