package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Minimal ABI fragments for the contracts this adapter touches.

const quoterABIJSON = `[
  {
    "name": "quoteExactInputSingle",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      {
        "name": "params",
        "type": "tuple",
        "components": [
          {"name": "tokenIn", "type": "address"},
          {"name": "tokenOut", "type": "address"},
          {"name": "amountIn", "type": "uint256"},
          {"name": "fee", "type": "uint24"},
          {"name": "sqrtPriceLimitX96", "type": "uint160"}
        ]
      }
    ],
    "outputs": [
      {"name": "amountOut", "type": "uint256"},
      {"name": "sqrtPriceX96After", "type": "uint160"},
      {"name": "initializedTicksCrossed", "type": "uint32"},
      {"name": "gasEstimate", "type": "uint256"}
    ]
  }
]`

const smartRouterABIJSON = `[
  {
    "name": "exactInputSingle",
    "type": "function",
    "stateMutability": "payable",
    "inputs": [
      {
        "name": "params",
        "type": "tuple",
        "components": [
          {"name": "tokenIn", "type": "address"},
          {"name": "tokenOut", "type": "address"},
          {"name": "fee", "type": "uint24"},
          {"name": "recipient", "type": "address"},
          {"name": "amountIn", "type": "uint256"},
          {"name": "amountOutMinimum", "type": "uint256"},
          {"name": "sqrtPriceLimitX96", "type": "uint160"}
        ]
      }
    ],
    "outputs": [{"name": "amountOut", "type": "uint256"}]
  }
]`

const v2RouterABIJSON = `[
  {
    "name": "getAmountsOut",
    "type": "function",
    "stateMutability": "view",
    "inputs": [
      {"name": "amountIn", "type": "uint256"},
      {"name": "path", "type": "address[]"}
    ],
    "outputs": [{"name": "amounts", "type": "uint256[]"}]
  },
  {
    "name": "swapExactETHForTokens",
    "type": "function",
    "stateMutability": "payable",
    "inputs": [
      {"name": "amountOutMin", "type": "uint256"},
      {"name": "path", "type": "address[]"},
      {"name": "to", "type": "address"},
      {"name": "deadline", "type": "uint256"}
    ],
    "outputs": [{"name": "amounts", "type": "uint256[]"}]
  },
  {
    "name": "swapExactTokensForETH",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "amountIn", "type": "uint256"},
      {"name": "amountOutMin", "type": "uint256"},
      {"name": "path", "type": "address[]"},
      {"name": "to", "type": "address"},
      {"name": "deadline", "type": "uint256"}
    ],
    "outputs": [{"name": "amounts", "type": "uint256[]"}]
  }
]`

const chainlinkABIJSON = `[
  {
    "name": "latestRoundData",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [
      {"name": "roundId", "type": "uint80"},
      {"name": "answer", "type": "int256"},
      {"name": "startedAt", "type": "uint256"},
      {"name": "updatedAt", "type": "uint256"},
      {"name": "answeredInRound", "type": "uint80"}
    ]
  }
]`

const erc20ABIJSON = `[
  {
    "name": "balanceOf",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{"name": "owner", "type": "address"}],
    "outputs": [{"name": "balance", "type": "uint256"}]
  },
  {
    "name": "allowance",
    "type": "function",
    "stateMutability": "view",
    "inputs": [
      {"name": "owner", "type": "address"},
      {"name": "spender", "type": "address"}
    ],
    "outputs": [{"name": "remaining", "type": "uint256"}]
  },
  {
    "name": "approve",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "spender", "type": "address"},
      {"name": "amount", "type": "uint256"}
    ],
    "outputs": [{"name": "success", "type": "bool"}]
  }
]`

const wrappedABIJSON = `[
  {
    "name": "withdraw",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [{"name": "amount", "type": "uint256"}],
    "outputs": []
  }
]`

var (
	quoterABI      = mustParseABI(quoterABIJSON)
	smartRouterABI = mustParseABI(smartRouterABIJSON)
	v2RouterABI    = mustParseABI(v2RouterABIJSON)
	chainlinkABI   = mustParseABI(chainlinkABIJSON)
	erc20ABI       = mustParseABI(erc20ABIJSON)
	wrappedABI     = mustParseABI(wrappedABIJSON)
)

func mustParseABI(src string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(src))
	if err != nil {
		panic(err)
	}
	return parsed
}
