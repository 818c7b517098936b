// Package config loads the limitswap YAML configuration and applies
// environment variable overrides for secrets and deployment paths.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the limitswap engine.
type Config struct {
	Pair    PairConfig   `yaml:"pair"`
	Chain   ChainConfig  `yaml:"chain"`
	Oracle  OracleConfig `yaml:"oracle"`
	Router  RouterConfig `yaml:"router"`
	Engine  EngineConfig `yaml:"engine"`
	Storage Storage      `yaml:"storage"`
	Server  Server       `yaml:"server"`
	Feed    FeedConfig   `yaml:"feed"`
	Notify  NotifyConfig `yaml:"notify"`
	Wallets []WalletRef  `yaml:"wallets"`
	Logging Logging      `yaml:"logging"`
}

// PairConfig names the convertible pair. Prices are quote units per base unit.
type PairConfig struct {
	Base  string `yaml:"base"`
	Quote string `yaml:"quote"`
}

// ChainConfig holds the RPC endpoint and contract addresses used by the EVM
// transport adapter.
type ChainConfig struct {
	RPCURL               string   `yaml:"rpc_url"`
	ChainID              int64    `yaml:"chain_id"`
	GasPriceGwei         float64  `yaml:"gas_price_gwei"`
	QuoterAddress        string   `yaml:"quoter_address"`
	SmartRouterAddress   string   `yaml:"smart_router_address"`
	V2RouterAddress      string   `yaml:"v2_router_address"`
	ChainlinkFeedAddress string   `yaml:"chainlink_feed_address"`
	QuoteTokenAddress    string   `yaml:"quote_token_address"`
	WrappedBaseAddress   string   `yaml:"wrapped_base_address"`
	PoolFee              int64    `yaml:"pool_fee"` // 500 selects the 0.05% pool
	KeysPath             string   `yaml:"keys_path"`
	CallTimeout          Duration `yaml:"call_timeout"`
	ReceiptTimeout       Duration `yaml:"receipt_timeout"`
}

// OracleConfig bounds the price cache and source call timeouts.
type OracleConfig struct {
	CacheTTL Duration `yaml:"cache_ttl"`
	MaxStale Duration `yaml:"max_stale"`
	Timeout  Duration `yaml:"timeout"`
}

// RouterConfig defines swap execution parameters.
type RouterConfig struct {
	Slippage        float64  `yaml:"slippage"` // 0.0005 means 0.05%
	SwapTimeout     Duration `yaml:"swap_timeout"`
	ApprovalTimeout Duration `yaml:"approval_timeout"`
	AutoUnwrap      bool     `yaml:"auto_unwrap"`
}

// EngineConfig controls the evaluation scheduler.
type EngineConfig struct {
	TickInterval Duration `yaml:"tick_interval"`
}

// Storage selects and locates the order store backend.
type Storage struct {
	Backend      string `yaml:"backend"` // "file" or "sqlite"
	OrdersPath   string `yaml:"orders_path"`
	SQLitePath   string `yaml:"sqlite_path"`
	PnLExportDir string `yaml:"pnl_export_dir"`
}

// Server holds network listener configuration for the admin API.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// FeedConfig configures the optional Alpaca crypto price feed used as the
// last oracle fallback.
type FeedConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Symbol          string `yaml:"symbol"` // e.g. "BNB/USD"
	APIKey          string `yaml:"api_key"`
	APISecret       string `yaml:"api_secret"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// NotifyConfig configures Telegram notifications. Both values normally come
// from the environment rather than the YAML file.
type NotifyConfig struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID string `yaml:"telegram_chat_id"`
}

// WalletRef names a wallet the engine may trade with. Key material is loaded
// separately by the chain adapter from ChainConfig.KeysPath.
type WalletRef struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Duration
// ---------------------------------------------------------------------------

// Duration wraps time.Duration so YAML values can be written as "10s" or "2m".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration back to its string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies defaults, and then applies environment variable
// overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyDefaults fills in values the YAML file may omit.
func applyDefaults(cfg *Config) {
	if cfg.Pair.Base == "" {
		cfg.Pair.Base = "BNB"
	}
	if cfg.Pair.Quote == "" {
		cfg.Pair.Quote = "USDT"
	}
	if cfg.Chain.PoolFee == 0 {
		cfg.Chain.PoolFee = 500
	}
	if cfg.Chain.GasPriceGwei == 0 {
		cfg.Chain.GasPriceGwei = 3
	}
	if cfg.Chain.CallTimeout == 0 {
		cfg.Chain.CallTimeout = Duration(10 * time.Second)
	}
	if cfg.Chain.ReceiptTimeout == 0 {
		cfg.Chain.ReceiptTimeout = Duration(90 * time.Second)
	}
	if cfg.Oracle.CacheTTL == 0 {
		cfg.Oracle.CacheTTL = Duration(10 * time.Second)
	}
	if cfg.Oracle.MaxStale == 0 {
		cfg.Oracle.MaxStale = Duration(10 * time.Second)
	}
	if cfg.Oracle.Timeout == 0 {
		cfg.Oracle.Timeout = Duration(10 * time.Second)
	}
	if cfg.Router.Slippage == 0 {
		cfg.Router.Slippage = 0.0005
	}
	if cfg.Router.SwapTimeout == 0 {
		cfg.Router.SwapTimeout = Duration(2 * time.Minute)
	}
	if cfg.Router.ApprovalTimeout == 0 {
		cfg.Router.ApprovalTimeout = Duration(time.Minute)
	}
	if cfg.Engine.TickInterval == 0 {
		cfg.Engine.TickInterval = Duration(2 * time.Second)
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "file"
	}
	if cfg.Storage.OrdersPath == "" {
		cfg.Storage.OrdersPath = "data/orders.json"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/limitswap.db"
	}
	if cfg.Storage.PnLExportDir == "" {
		cfg.Storage.PnLExportDir = "data/pnl"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Feed.Symbol == "" {
		cfg.Feed.Symbol = "BNB/USD"
	}
	if cfg.Feed.RateLimitPerMin == 0 {
		cfg.Feed.RateLimitPerMin = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CHAIN_RPC_URL"); v != "" {
		cfg.Chain.RPCURL = v
	}
	if v := os.Getenv("WALLET_KEYS_PATH"); v != "" {
		cfg.Chain.KeysPath = v
	}

	if v := os.Getenv("ORDERS_PATH"); v != "" {
		cfg.Storage.OrdersPath = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		cfg.Notify.TelegramToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notify.TelegramChatID = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Feed.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Feed.APISecret = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority, canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Feed.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Feed.APISecret = v
	}
}
